package classifier

import "strconv"

// Labels the models were trained on.
const (
	LabelHigh   = "High"
	LabelLow    = "Low"
	LabelNormal = "Normal"
)

// Advisory text attached to each label.
const (
	WarningHigh   = "Take rest and breathe slowly"
	WarningLow    = "Relaxed state"
	WarningNormal = "Normal"
)

// Advisory maps a label to the text shown on the display.
func Advisory(label string) string {
	switch label {
	case LabelHigh:
		return WarningHigh
	case LabelLow:
		return WarningLow
	default:
		return WarningNormal
	}
}

// Decoded is the result of decoding a class id. When the id is unknown to the
// decoder Fallback is set and Label holds the id as a decimal string.
type Decoded struct {
	Label    string
	Fallback bool
}

// LabelDecoder maps class ids to labels by position, matching an encoder fitted
// on the sorted label set.
type LabelDecoder struct {
	Classes []string `yaml:"classes" json:"classes"`
}

// NewLabelDecoder returns a decoder for classes in id order.
func NewLabelDecoder(classes ...string) *LabelDecoder {
	return &LabelDecoder{Classes: classes}
}

// DefaultLabelDecoder decodes 0=High, 1=Low, 2=Normal.
func DefaultLabelDecoder() *LabelDecoder {
	return NewLabelDecoder(LabelHigh, LabelLow, LabelNormal)
}

// Decode looks up id.
func (d *LabelDecoder) Decode(id int) Decoded {
	if id < 0 || id >= len(d.Classes) {
		return Decoded{Label: strconv.Itoa(id), Fallback: true}
	}
	return Decoded{Label: d.Classes[id]}
}
