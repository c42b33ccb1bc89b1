package types

import (
	json "github.com/goccy/go-json"
)

// UnmarshalJSON keeps unrecognized hyperparameter keys in Extra so producer
// metadata survives a parse/serve round trip.
func (h *Hyperparameters) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["segmentation_threshold"]; ok {
		var t float32
		if err := json.Unmarshal(v, &t); err != nil {
			return err
		}
		h.SegmentationThreshold = &t
		delete(raw, "segmentation_threshold")
	}
	if len(raw) > 0 {
		h.Extra = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			h.Extra[k] = val
		}
	}
	return nil
}

// MarshalJSON writes the typed keys alongside the preserved Extra keys.
func (h Hyperparameters) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(h.Extra)+1)
	for k, v := range h.Extra {
		out[k] = v
	}
	if h.SegmentationThreshold != nil {
		out["segmentation_threshold"] = *h.SegmentationThreshold
	}
	return json.Marshal(out)
}
