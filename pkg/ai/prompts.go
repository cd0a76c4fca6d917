package ai

// ClassifyScenePrompt instructs the judge to classify the entities of one
// scene. The two format arguments are the prior narrative context (may be
// empty) and the scene text is passed as the user prompt.
const ClassifyScenePrompt = `
# Task Context
You are an assistant that analyzes one scene of a branching interactive story and classifies the entities it references.

# Background Data
Narrative context established before this scene:
%s

# Detailed Task Description & Rules
- Identify every character, location, item and concept the scene references.
- For each entity decide whether this scene INTRODUCES it (the reader meets it here for the first time), REMOVES it (it leaves the story: dies, is destroyed, departs), or whether it is merely PRESENT (referenced as already known).
- An entity can appear in both the introduced and present lists only if it is introduced and then used again within the same scene; prefer listing it once, as introduced.
- Mark proper nouns (named characters, named places) with proper_noun = true.
- Assign a confidence of unknown, low, medium or high to each classification.
- When the scene states a durable property of an entity (species, role, profession, relationship), record it in the attributes map, e.g. {"species": "cat"}.
- Estimate how much story time passes during the scene as one of: none, moments, hours, days, longer.

# Immediate Task Description or Request
Classify the entities of the scene provided by the user and return the structured result.
`

// EvaluatePathConsistencyPrompt instructs the judge to score the narrative
// consistency of one complete player path.
const EvaluatePathConsistencyPrompt = `
# Task Context
You are an assistant that reviews one complete player path through a branching interactive story and judges whether the narrative stays consistent from beginning to end.

# Detailed Task Description & Rules
- The user provides the full narrative text of the path, scene by scene, in reading order.
- Look for contradictions a careful reader would notice:
  * entity: characters, items or places that behave as if never established, or change identity
  * time: day/night, season or elapsed-time contradictions
  * emotional: mood or relationship shifts with no cause
  * causal: effects shown before their causes, or consequences that never follow
  * other: anything else that breaks the narrative
- Grade each issue low, medium, high or critical.
- List the scene numbers involved in each issue (1-based position within this path).
- Summarize the overall verdict as one of: ok, minor_issues, major_issues, broken.
- A path with no issues is simply ok; do not invent problems.

# Immediate Task Description or Request
Evaluate the provided path and return the structured verdict.
`
