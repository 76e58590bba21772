package shared

// CloneCreativeData deep-clones a creative_data payload. Payloads are
// JSON-shaped (maps, slices, scalars), so a structural walk is sufficient.
// Mutated candidates must never alias their parent's payload.
func CloneCreativeData(source map[string]interface{}) map[string]interface{} {
	if source == nil {
		return nil
	}
	cloned := make(map[string]interface{}, len(source))
	for k, v := range source {
		cloned[k] = cloneJSONValue(v)
	}
	return cloned
}

// CloneMetrics returns a copy of m with no shared pointer or slice backing.
func CloneMetrics(m PerformanceMetrics) PerformanceMetrics {
	out := m
	out.CTR = clonePtr(m.CTR)
	out.CPA = clonePtr(m.CPA)
	out.ROAS = clonePtr(m.ROAS)
	out.ConversionRate = clonePtr(m.ConversionRate)
	out.Spend = clonePtr(m.Spend)
	out.EngagementDecay = clonePtr(m.EngagementDecay)
	out.StabilityScore = clonePtr(m.StabilityScore)
	if m.DecayCurve != nil {
		out.DecayCurve = append([]float64(nil), m.DecayCurve...)
	}
	if m.PolicyFlags != nil {
		out.PolicyFlags = append([]string(nil), m.PolicyFlags...)
	}
	return out
}

// CloneCreative returns a deep copy of c.
func CloneCreative(c Creative) Creative {
	out := c
	out.CreativeData = CloneCreativeData(c.CreativeData)
	out.Metrics = CloneMetrics(c.Metrics)
	return out
}

func cloneJSONValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		cloned := make(map[string]interface{}, len(val))
		for k, inner := range val {
			cloned[k] = cloneJSONValue(inner)
		}
		return cloned
	case []interface{}:
		cloned := make([]interface{}, len(val))
		for i, inner := range val {
			cloned[i] = cloneJSONValue(inner)
		}
		return cloned
	default:
		return v
	}
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
