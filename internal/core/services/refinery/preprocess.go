package refinery

// ValueTaggingRules returns the numeric tagging rules in their required order.
// Broad digit matching comes last so the specific patterns see their digits first.
func ValueTaggingRules() []Rule {
	return []Rule{
		NewRule(StepHandlePriceValue, HandlePriceValue),
		NewRule(StepHandleScoreValue, HandleScoreValue),
		NewRule(StepHandleTimeValue, HandleTimeValue),
		NewRule(StepHandlePercentValue, HandlePercentValue),
		NewRule(StepHandleNumber, HandleNumber),
	}
}

// DefaultRules returns the review-cleaning rule list. A nil seg selects DefaultSegmenter.
func DefaultRules(seg Segmenter) []Rule {
	if seg == nil {
		seg = DefaultSegmenter()
	}

	rules := make([]Rule, 0, 13)
	rules = append(rules, NewRule(StepToLower, ToLower))
	rules = append(rules, ValueTaggingRules()...)
	rules = append(rules,
		NewRule(StepRemovePunctuation, RemovePunctuation),
		NewRule(StepRemoveEmojis, RemoveEmojis),
		NewRule(StepHandleDuplicateCharacter, HandleDuplicateCharacter),
		NewRule(StepHandleAcronym, HandleAcronym),
		NewRule(StepHandleVietnamese, HandleVietnamese),
		SegmentationRule(seg),
		NewRule(StepRemoveNoise, RemoveNoise),
	)

	return rules
}

// Preprocessing threads text through rules in order.
// A nil list runs DefaultRules(nil); an empty, non-nil list returns text unchanged.
func Preprocessing(text string, rules []Rule) string {
	if rules == nil {
		rules = DefaultRules(nil)
	}

	for _, rule := range rules {
		text = rule.Apply(text)
	}

	return text
}

// StepTrace records the output of one rule
type StepTrace struct {
	Step   string `json:"step"`
	Output string `json:"output"`
}

// Trace runs Preprocessing and records every intermediate result.
// The last entry's Output equals Preprocessing(text, rules).
func Trace(text string, rules []Rule) []StepTrace {
	if rules == nil {
		rules = DefaultRules(nil)
	}

	traces := make([]StepTrace, 0, len(rules))
	for _, rule := range rules {
		text = rule.Apply(text)
		traces = append(traces, StepTrace{Step: rule.Name(), Output: text})
	}

	return traces
}
