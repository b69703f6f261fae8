package ingest

import "sort"

// reservedKeys are identity, timestamp, topic and metrics-control fields
// (plus the camera image blob) that the fallback scan must never treat as
// metrics. Any other numeric top-level field becomes a metric, so payload
// schema drift can silently widen the metric set; keeping the policy in
// one function makes it swappable for a stricter allow-list.
var reservedKeys = map[string]struct{}{
	"device":      {},
	"clientId":    {},
	"sensor_id":   {},
	"sensor_type": {},
	"ts":          {},
	"timestamp":   {},
	"topic":       {},
	"metrics":     {},
	"metric_keys": {},
	"image_b64":   {},
	"status":      {},
}

// MetricExtractor resolves the numeric metrics of a raw device payload.
type MetricExtractor func(payload map[string]any) map[string]float64

// ExtractMetrics is the default strategy: if the payload carries an
// explicit metrics object, only its numeric-valued entries are copied;
// otherwise every unreserved numeric top-level field is collected.
// Non-numeric values are dropped silently either way.
func ExtractMetrics(payload map[string]any) map[string]float64 {
	metrics := make(map[string]float64)

	if explicit, ok := payload["metrics"].(map[string]any); ok {
		for key, value := range explicit {
			if num, ok := asNumber(value); ok {
				metrics[key] = num
			}
		}
		return metrics
	}

	for key, value := range payload {
		if _, reserved := reservedKeys[key]; reserved {
			continue
		}
		if num, ok := asNumber(value); ok {
			metrics[key] = num
		}
	}
	return metrics
}

// ResolveMetricKeys returns the authoritative ordered key list: an explicit
// metric_keys array wins; otherwise the extracted metric names, sorted for
// a deterministic order.
func ResolveMetricKeys(payload map[string]any, metrics map[string]float64) []string {
	if raw, ok := payload["metric_keys"].([]any); ok {
		keys := make([]string, 0, len(raw))
		for _, entry := range raw {
			if key, ok := entry.(string); ok {
				keys = append(keys, key)
			}
		}
		return keys
	}

	keys := make([]string, 0, len(metrics))
	for key := range metrics {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// asNumber accepts the numeric types a decoded JSON payload (or a caller
// constructing payloads in Go) can carry.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
