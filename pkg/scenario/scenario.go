package scenario

// SceneType classifies how a scene advances the story.
type SceneType string

const (
	SceneTypeNarrative SceneType = "narrative"
	SceneTypeChoice    SceneType = "choice"
	SceneTypeRoll      SceneType = "roll"
	SceneTypeSpecial   SceneType = "special"
)

// Scenario is a fully materialized authored branching story: an ordered
// list of scenes plus descriptive metadata. The evaluation engine never
// fetches or persists scenarios itself; they arrive through a store.
type Scenario struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Scenes      []Scene `json:"scenes"`
}

// Scene is one narrative unit of a scenario. Linear scenes advance through
// NextSceneID; choice and roll scenes may fan out through Branches instead.
// Scenes of type "special" or with no outgoing transition are endings.
type Scene struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Type        SceneType    `json:"type"`
	NextSceneID string       `json:"next_scene_id,omitempty"`
	Branches    []Branch     `json:"branches,omitempty"`
	EchoReveals []EchoReveal `json:"echo_reveals,omitempty"`
	Difficulty  int          `json:"difficulty,omitempty"`
}

// Branch is a player-choice edge from its owning scene to a target scene.
type Branch struct {
	Label         string         `json:"label"`
	TargetSceneID string         `json:"target_scene_id"`
	EchoLog       *EchoLog       `json:"echo_log,omitempty"`
	CompassChange *CompassChange `json:"compass_change,omitempty"`
}

// EchoLog records the narrative weight of taking a branch.
// Strength is in [-1, 1].
type EchoLog struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Strength    float64 `json:"strength"`
}

// EchoReveal triggers a previously logged echo inside a scene.
type EchoReveal struct {
	EchoType  string `json:"echo_type"`
	Condition string `json:"condition,omitempty"`
}

// CompassChange shifts a personality axis when a branch is taken.
type CompassChange struct {
	AxisID string `json:"axis_id"`
	Delta  int    `json:"delta"`
}

// HasBranches reports whether the scene fans out through branches.
func (s *Scene) HasBranches() bool {
	return len(s.Branches) > 0
}

// IsEnding reports whether the scene terminates a traversal: special scenes
// always end the story, other scenes end it when nothing follows them.
func (s *Scene) IsEnding() bool {
	if s.Type == SceneTypeSpecial {
		return true
	}
	return s.NextSceneID == "" && len(s.Branches) == 0
}

// SceneByID returns the scene with the given id, or nil.
func (sc *Scenario) SceneByID(id string) *Scene {
	for i := range sc.Scenes {
		if sc.Scenes[i].ID == id {
			return &sc.Scenes[i]
		}
	}
	return nil
}
