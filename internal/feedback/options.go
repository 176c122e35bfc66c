package feedback

// Option is one sentiment choice on the feedback page.
type Option struct {
	Value         string `json:"value"`
	Label         string `json:"label"`
	Icon          string `json:"icon"`
	DefaultRating int    `json:"default_rating"`
}

const (
	OptionGreat   = "great"
	OptionOk      = "ok"
	OptionReclean = "reclean"
)

// Options are listed in display order.
var Options = []Option{
	{Value: OptionGreat, Label: "Great", Icon: "👍", DefaultRating: 5},
	{Value: OptionOk, Label: "Okay", Icon: "👌", DefaultRating: 4},
	{Value: OptionReclean, Label: "Needs reclean", Icon: "🧹", DefaultRating: 3},
}

// LookupOption finds an option by value.
func LookupOption(value string) (Option, bool) {
	for _, o := range Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}
