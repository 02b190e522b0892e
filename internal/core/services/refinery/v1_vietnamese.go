package refinery

// RefineryV1Vietnamese implements Version 1 Refinery for Vietnamese user reviews
//
// Features:
// - Vietnamese-aware lower-casing
// - Price, score, time, percent and number tagging (pricev, scorev, ...)
// - ASCII punctuation and emoji removal
// - Repeated-letter collapsing ("ngonnn" -> "ngon")
// - Chat acronym expansion and diacritic repair
// - Dictionary word segmentation and single-character noise removal
type RefineryV1Vietnamese struct {
	config *RefineryConfig
	rules  []Rule
}

// NewRefineryV1Vietnamese creates a new V1 refinery instance
func NewRefineryV1Vietnamese(customConfig map[string]interface{}) *RefineryV1Vietnamese {
	config := &RefineryConfig{
		ToLower:                  true,
		HandlePriceValue:         true,
		HandleScoreValue:         true,
		HandleTimeValue:          true,
		HandlePercentValue:       true,
		HandleNumber:             true,
		RemovePunctuation:        true,
		RemoveEmojis:             true,
		HandleDuplicateCharacter: true,
		HandleAcronym:            true,
		HandleVietnamese:         true,
		WordTokenize:             true,
		RemoveNoise:              true,
	}

	// Apply custom config overrides if provided
	if customConfig != nil {
		applyCustomConfig(config, customConfig)
	}

	enabled := config.enabledSteps()
	rules := make([]Rule, 0, len(enabled))
	for _, rule := range DefaultRules(config.Segmenter) {
		if enabled[rule.Name()] {
			rules = append(rules, rule)
		}
	}

	return &RefineryV1Vietnamese{
		config: config,
		rules:  rules,
	}
}

// Process processes text through the configured pipeline
func (r *RefineryV1Vietnamese) Process(text string) string {
	return Preprocessing(text, r.rules)
}

// Trace returns the output of every enabled step for text
func (r *RefineryV1Vietnamese) Trace(text string) []StepTrace {
	return Trace(text, r.rules)
}

// Rules returns a copy of the enabled rules in order
func (r *RefineryV1Vietnamese) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// GetVersion returns the version identifier
func (r *RefineryV1Vietnamese) GetVersion() string {
	return "v1"
}

// GetName returns the human-readable name
func (r *RefineryV1Vietnamese) GetName() string {
	return "Vietnamese Review Cleaning"
}

// GetDescription returns what this refinery does
func (r *RefineryV1Vietnamese) GetDescription() string {
	return "Vietnamese review normalization with value tagging, emoji and punctuation removal, acronym and diacritic repair, and word segmentation"
}

// GetDefaultConfig returns the default configuration
func (r *RefineryV1Vietnamese) GetDefaultConfig() map[string]interface{} {
	defaults := make(map[string]interface{}, len(stepOrder))
	for _, step := range stepOrder {
		defaults[step] = true
	}
	return defaults
}

// GetPipelineSteps returns the list of enabled processing steps
func (r *RefineryV1Vietnamese) GetPipelineSteps() []string {
	steps := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		steps = append(steps, rule.Name())
	}
	return steps
}

// AddRule inserts a rule at position; out-of-range positions append
func (r *RefineryV1Vietnamese) AddRule(rule Rule, position int) {
	if position < 0 || position >= len(r.rules) {
		r.rules = append(r.rules, rule)
		return
	}
	r.rules = append(r.rules[:position+1], r.rules[position:]...)
	r.rules[position] = rule
}

// RemoveRuleAtPosition removes the rule at position; out-of-range positions are ignored
func (r *RefineryV1Vietnamese) RemoveRuleAtPosition(position int) {
	if position >= 0 && position < len(r.rules) {
		r.rules = append(r.rules[:position], r.rules[position+1:]...)
	}
}

// stepOrder lists every step name in default order
var stepOrder = []string{
	StepToLower,
	StepHandlePriceValue,
	StepHandleScoreValue,
	StepHandleTimeValue,
	StepHandlePercentValue,
	StepHandleNumber,
	StepRemovePunctuation,
	StepRemoveEmojis,
	StepHandleDuplicateCharacter,
	StepHandleAcronym,
	StepHandleVietnamese,
	StepWordTokenize,
	StepRemoveNoise,
}

// StepNames returns every step name in default order
func StepNames() []string {
	out := make([]string, len(stepOrder))
	copy(out, stepOrder)
	return out
}

func (c *RefineryConfig) flags() map[string]*bool {
	return map[string]*bool{
		StepToLower:                  &c.ToLower,
		StepHandlePriceValue:         &c.HandlePriceValue,
		StepHandleScoreValue:         &c.HandleScoreValue,
		StepHandleTimeValue:          &c.HandleTimeValue,
		StepHandlePercentValue:       &c.HandlePercentValue,
		StepHandleNumber:             &c.HandleNumber,
		StepRemovePunctuation:        &c.RemovePunctuation,
		StepRemoveEmojis:             &c.RemoveEmojis,
		StepHandleDuplicateCharacter: &c.HandleDuplicateCharacter,
		StepHandleAcronym:            &c.HandleAcronym,
		StepHandleVietnamese:         &c.HandleVietnamese,
		StepWordTokenize:             &c.WordTokenize,
		StepRemoveNoise:              &c.RemoveNoise,
	}
}

func (c *RefineryConfig) enabledSteps() map[string]bool {
	enabled := make(map[string]bool, len(stepOrder))
	for name, flag := range c.flags() {
		enabled[name] = *flag
	}
	return enabled
}

// Helper function to apply custom configuration
func applyCustomConfig(config *RefineryConfig, custom map[string]interface{}) {
	for name, flag := range config.flags() {
		if v, ok := custom[name].(bool); ok {
			*flag = v
		}
	}

	switch seg := custom["segmenter"].(type) {
	case Segmenter:
		config.Segmenter = seg
	case func(string) string:
		config.Segmenter = SegmenterFunc(seg)
	}
}
