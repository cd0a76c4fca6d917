package scenario

// EntityType categorizes what a scene entity refers to.
type EntityType string

const (
	EntityTypeCharacter EntityType = "character"
	EntityTypeLocation  EntityType = "location"
	EntityTypeItem      EntityType = "item"
	EntityTypeConcept   EntityType = "concept"
)

// Confidence expresses how certain the judge is about a classification.
type Confidence string

const (
	ConfidenceUnknown Confidence = "unknown"
	ConfidenceLow     Confidence = "low"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceHigh    Confidence = "high"
)

// SceneEntity is a character, location, item, or concept the judge found
// in one scene's text. Entities are ephemeral classification output; they
// are consumed by the continuity analyzer and never persisted.
type SceneEntity struct {
	Type       EntityType `json:"type"`
	Name       string     `json:"name"`
	ProperNoun bool       `json:"proper_noun"`
	Confidence Confidence `json:"confidence"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// SceneEntityClassification is the judge's per-scene verdict: which
// entities enter, leave, or are merely present, plus a coarse tag for how
// much story time the scene covers.
type SceneEntityClassification struct {
	SceneID    string        `json:"scene_id"`
	Introduced []SceneEntity `json:"introduced"`
	Removed    []SceneEntity `json:"removed"`
	Present    []SceneEntity `json:"present"`
	TimeDelta  string        `json:"time_delta,omitempty"`
}

// ClassificationSet maps scene ids to their classifications. Scenes the
// judge failed on are simply absent; the analyzer treats gaps as reduced
// confidence, not as errors.
type ClassificationSet map[string]*SceneEntityClassification
