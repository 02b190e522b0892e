package refinery

// BaseRefinery defines the interface that all refinery implementations must follow
// This enables a plugin architecture where different cleaning strategies can be swapped
type BaseRefinery interface {
	// Process cleans a single text string through the refinery pipeline
	Process(text string) string

	// GetVersion returns the version identifier (e.g., "v1")
	GetVersion() string

	// GetName returns a human-readable name
	GetName() string

	// GetDescription returns what this refinery does
	GetDescription() string

	// GetDefaultConfig returns the default configuration
	GetDefaultConfig() map[string]interface{}

	// GetPipelineSteps returns the list of processing steps in order
	GetPipelineSteps() []string
}

// ProcessingStep represents a single text transformation function
type ProcessingStep func(string) string

// Rule is a named, pure text transformation. Rules hold no mutable state and
// never fail on valid UTF-8 input.
type Rule interface {
	Name() string
	Apply(text string) string
}

type namedStep struct {
	name string
	fn   ProcessingStep
}

func (s namedStep) Name() string { return s.name }

func (s namedStep) Apply(text string) string { return s.fn(text) }

// NewRule wraps a ProcessingStep under a diagnostic name
func NewRule(name string, fn ProcessingStep) Rule {
	return namedStep{name: name, fn: fn}
}

// Step names, in default pipeline order
const (
	StepToLower                  = "to_lower"
	StepHandlePriceValue         = "handle_price_value"
	StepHandleScoreValue         = "handle_score_value"
	StepHandleTimeValue          = "handle_time_value"
	StepHandlePercentValue       = "handle_percent_value"
	StepHandleNumber             = "handle_number"
	StepRemovePunctuation        = "remove_punctuation"
	StepRemoveEmojis             = "remove_emojis"
	StepHandleDuplicateCharacter = "handle_duplicate_character"
	StepHandleAcronym            = "handle_acronym"
	StepHandleVietnamese         = "handle_vietnamese"
	StepWordTokenize             = "word_tokenize"
	StepRemoveNoise              = "remove_noise"
)

// RefineryConfig holds configuration for a refinery.
// Each flag keeps or drops one step; dropping a step never moves the others.
type RefineryConfig struct {
	ToLower                  bool `json:"to_lower"`
	HandlePriceValue         bool `json:"handle_price_value"`
	HandleScoreValue         bool `json:"handle_score_value"`
	HandleTimeValue          bool `json:"handle_time_value"`
	HandlePercentValue       bool `json:"handle_percent_value"`
	HandleNumber             bool `json:"handle_number"`
	RemovePunctuation        bool `json:"remove_punctuation"`
	RemoveEmojis             bool `json:"remove_emojis"`
	HandleDuplicateCharacter bool `json:"handle_duplicate_character"`
	HandleAcronym            bool `json:"handle_acronym"`
	HandleVietnamese         bool `json:"handle_vietnamese"`
	WordTokenize             bool `json:"word_tokenize"`
	RemoveNoise              bool `json:"remove_noise"`

	// Segmenter used by the word_tokenize step; nil selects DefaultSegmenter
	Segmenter Segmenter `json:"-"`
}
