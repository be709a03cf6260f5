package ai

const QueryGenerationPrompt = `
# Task Context
You are a research assistant that plans web searches for someone who wants to learn a topic in depth.

# Background Data
Topic: %s
%s

# Detailed Task Description & Rules
- Generate exactly %d specific, focused search queries.
- Queries must be comprehensive yet specific and written in natural language.
- Each query must cover a different aspect or perspective of the topic.
- Cover these areas, in order, as far as the query count allows:
  1. Fundamental concepts and definitions
  2. Recent developments and research
  3. Expert opinions and analysis
  4. Practical applications and case studies
  5. Controversies and different perspectives
- Do not number the queries and do not add commentary.

# Immediate Task Description or Request
Return a JSON object with the list of queries.
`

// Preference hints appended to QueryGenerationPrompt for each selected source preference.
var PreferenceHints = map[string]string{
	"reliable":   "Focus on academic, government, and authoritative sources.",
	"unreliable": "Include alternative perspectives and non-mainstream sources.",
	"insider":    "Look for expert opinions and industry insider knowledge.",
	"outsider":   "Include external critiques and independent analysis.",
}

const ReliabilityPrompt = `
# Task Context
You assess how trustworthy a web source is for someone researching a topic.

# Background Data
Title: %s
URL: %s
Excerpt:
%s

# Detailed Task Description & Rules
- Score the source from 0 (not trustworthy) to 100 (highly trustworthy).
- Consider the publisher's authority, evidence of expertise, citation of sources, and signs of bias or commercial intent.
- Academic, governmental and well known reference publishers usually score high; anonymous, promotional or sensational content usually scores low.
- Base the score only on the data above. Do not invent facts about the publisher.

# Immediate Task Description or Request
Return a JSON object with the integer score and a one sentence reasoning.
`

const ConceptExtractionPrompt = `
# Task Context
You extract the key concepts and named entities a learner must understand from a source document.

# Background Data
Topic: %s
Document:
%s

# Detailed Task Description & Rules
- Extract concepts (ideas, techniques, theories) and entities (people, organizations, products, places).
- Use the shortest canonical name for each item, in singular form where natural.
- Count how often each item is mentioned in the document, including close variants.
- Ignore generic words such as "system", "thing" or "example".
- Return at most %d items.

# Immediate Task Description or Request
Return a JSON object listing the extracted items.
`
