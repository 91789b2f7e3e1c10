package ndef

// FilterText 过滤出 well-known 文本记录，保持原有顺序
func FilterText(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.IsText() {
			out = append(out, r)
		}
	}
	return out
}
