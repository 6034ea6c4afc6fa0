package textnorm

import "sort"

// Tables is the immutable vocabulary a Normalizer is built from.
type Tables struct {
	StopWords    []string            `yaml:"stop_words"`
	BrandAliases map[string][]string `yaml:"brand_aliases"` // canonical -> spellings in either language
}

// DefaultTables holds packaging/unit words and Thai transliterations of the
// brands seen across the six catalogs.
func DefaultTables() Tables {
	return Tables{
		StopWords: []string{
			// th
			"ชุด", "แพ็ค", "แพ็ก", "แพค", "ขนาด", "ชิ้น", "กล่อง", "ขวด", "ถุง", "ห่อ", "แผง", "รุ่น",
			// en
			"set", "sets", "pack", "packs", "size", "pcs", "pc", "piece", "pieces",
			"box", "bottle", "bag", "unit", "units", "model",
		},
		BrandAliases: map[string][]string{
			"samsung":    {"ซัมซุง", "ซัมซง", "ซำซุง"},
			"lg":         {"แอลจี", "แอล จี", "lg electronics"},
			"sony":       {"โซนี่", "โซนี"},
			"panasonic":  {"พานาโซนิค", "พานาโซนิก"},
			"sharp":      {"ชาร์ป"},
			"toshiba":    {"โตชิบา"},
			"hitachi":    {"ฮิตาชิ"},
			"mitsubishi": {"มิตซูบิชิ", "mitsubishi electric"},
			"daikin":     {"ไดกิ้น", "ไดกิน"},
			"electrolux": {"อีเลคโทรลักซ์", "อิเล็กโทรลักซ์"},
			"philips":    {"ฟิลิปส์", "ฟิลลิปส์"},
			"tcl":        {"ทีซีแอล"},
			"haier":      {"ไฮเออร์"},
			"hisense":    {"ไฮเซ่นส์", "ไฮเซนส์"},
			"xiaomi":     {"เสียวหมี่"},
			"apple":      {"แอปเปิ้ล", "แอปเปิล"},
			"huawei":     {"หัวเว่ย"},
			"oppo":       {"ออปโป้"},
			"vivo":       {"วีโว่"},
			"asus":       {"เอซุส", "อัสซุส"},
			"acer":       {"เอเซอร์"},
			"lenovo":     {"เลอโนโว"},
			"canon":      {"แคนนอน"},
			"epson":      {"เอปสัน"},
			"tefal":      {"ทีฟาล์ว"},
			"bosch":      {"บ๊อช"},
			"makita":     {"มากีต้า"},
			"dyson":      {"ไดสัน"},
			"smarthome":  {"สมาร์ทโฮม", "smart home"},
			"hatari":     {"ฮาตาริ"},
			"mitsumaru":  {"มิตซูมารู"},
			"otto":       {"ออตโต้"},
			"imarflex":   {"อิมาร์เฟล็กซ์"},
			"beko":       {"เบโค"},
			"whirlpool":  {"เวิร์ลพูล"},
			"midea":      {"ไมเดีย"},
			"aconatic":   {"อโคนาติก"},
			"worldtech":  {"เวิลด์เทค"},
			"casio":      {"คาสิโอ"},
			"jbl":        {"เจบีแอล"},
			"logitech":   {"โลจิเทค"},
			"ezviz":      {"อีซวิซ"},
			"tp-link":    {"ทีพีลิงค์", "tplink"},
			"karcher":    {"คาร์เชอร์", "kärcher"},
			"stiebel":    {"สตีเบล", "stiebel eltron"},
			"sanyo":      {"ซันโย"},
			"toyotomi":   {"โตโยโตมิ"},
			"fujitsu":    {"ฟูจิตสึ"},
			"carrier":    {"แคเรียร์"},
			"hafele":     {"เฮเฟเล่", "häfele"},
			"zojirushi":  {"โซจิรูชิ"},
		},
	}
}

// Merge returns t extended with the stop words and alias spellings of o.
func (t Tables) Merge(o Tables) Tables {
	out := Tables{
		StopWords:    append(append([]string{}, t.StopWords...), o.StopWords...),
		BrandAliases: make(map[string][]string, len(t.BrandAliases)+len(o.BrandAliases)),
	}
	for k, v := range t.BrandAliases {
		out.BrandAliases[k] = append([]string{}, v...)
	}
	for k, v := range o.BrandAliases {
		out.BrandAliases[k] = append(out.BrandAliases[k], v...)
	}
	return out
}

func (t Tables) canonicals() []string {
	keys := make([]string, 0, len(t.BrandAliases))
	for k := range t.BrandAliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
