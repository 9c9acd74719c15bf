package docsis

import "fmt"

// Format selects the decoder for a modem family's status response.
type Format int

const (
	FormatHNAP Format = iota + 1
	FormatHTML
)

func (f Format) String() string {
	switch f {
	case FormatHNAP:
		return "hnap"
	case FormatHTML:
		return "html"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

var modelFormats = map[string]Format{
	"MB8600":     FormatHNAP,
	"CGM4331COM": FormatHTML,
	"CGM4981COM": FormatHTML,
}

// SupportedModels lists the modem models with a known response format.
var SupportedModels = []string{"MB8600", "CGM4331COM", "CGM4981COM"}

// FormatForModel returns the response format served by a modem model.
func FormatForModel(model string) (Format, error) {
	f, ok := modelFormats[model]
	if !ok {
		return 0, fmt.Errorf("unsupported modem model %q", model)
	}
	return f, nil
}

// Parse decodes raw with the decoder selected by f.
func Parse(f Format, raw []byte) (*ChannelModel, error) {
	switch f {
	case FormatHNAP:
		return ParseHNAP(raw)
	case FormatHTML:
		return ParseHTML(raw)
	}
	return nil, fmt.Errorf("unknown response format %v", f)
}
