package notification

// Prune recursively strips empty values from a JSON-shaped tree of
// map[string]any / []any / scalars: empty strings, nils, and containers
// that end up empty after their children are pruned. Applied bottom-up so
// emptied parents disappear with their children. Idempotent; never removes
// a non-empty string, number, bool, or non-empty container.
//
// The bundle builder constructs many optional fields unconditionally and
// relies on this pass to remove the empty shells.
func Prune(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))

		for k, child := range t {
			cleaned := Prune(child)
			if isEmpty(cleaned) {
				continue
			}

			out[k] = cleaned
		}

		return out
	case []any:
		out := make([]any, 0, len(t))

		for _, child := range t {
			cleaned := Prune(child)
			if isEmpty(cleaned) {
				continue
			}

			out = append(out, cleaned)
		}

		return out
	default:
		return v
	}
}

// isEmpty reports whether a pruned value should be dropped from its parent.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
