package docsis

// optional distinguishes a field that was never read from one read as zero.
type optional[T any] struct {
	value T
	set   bool
}

func some[T any](v T) optional[T] {
	return optional[T]{value: v, set: true}
}

func (o optional[T]) get() (T, bool) {
	return o.value, o.set
}

// or returns the value when it was set, otherwise def.
func (o optional[T]) or(def T) T {
	if v, ok := o.get(); ok {
		return v
	}
	return def
}

type downstreamDraft struct {
	channelID    optional[int]
	lockStatus   optional[string]
	modulation   optional[string]
	frequencyMHz optional[float64]
	powerDB      optional[float64]
	snrDB        optional[float64]
}

func (d downstreamDraft) build(channel int) DownstreamChannel {
	return DownstreamChannel{
		Channel:      channel,
		ChannelID:    d.channelID.or(0),
		LockStatus:   d.lockStatus.or(""),
		Modulation:   d.modulation.or(""),
		FrequencyMHz: d.frequencyMHz.or(0),
		PowerDB:      d.powerDB.or(0),
		SNRDB:        d.snrDB.or(0),
	}
}

type upstreamDraft struct {
	channelID      optional[int]
	lockStatus     optional[string]
	modulation     optional[string]
	frequencyMHz   optional[float64]
	powerDB        optional[float64]
	symbolRateKsps optional[int]
}

func (d upstreamDraft) build(channel int) UpstreamChannel {
	return UpstreamChannel{
		Channel:        channel,
		ChannelID:      d.channelID.or(0),
		LockStatus:     d.lockStatus.or(""),
		Modulation:     d.modulation.or(""),
		FrequencyMHz:   d.frequencyMHz.or(0),
		PowerDB:        d.powerDB.or(0),
		SymbolRateKsps: d.symbolRateKsps.or(0),
	}
}

// rowLabel enumerates the row headers recognized in the channel tables.
type rowLabel int

const (
	rowUnknown rowLabel = iota
	rowChannelID
	rowLockStatus
	rowFrequency
	rowSNR
	rowPowerLevel
	rowModulation
	rowSymbolRate
	rowCorrectable
	rowUncorrectable
)

var rowLabelNames = map[rowLabel]string{
	rowChannelID:     "Channel ID",
	rowLockStatus:    "Lock Status",
	rowFrequency:     "Frequency",
	rowSNR:           "SNR",
	rowPowerLevel:    "Power Level",
	rowModulation:    "Modulation",
	rowSymbolRate:    "Symbol Rate",
	rowCorrectable:   "Correctable Codewords",
	rowUncorrectable: "Uncorrectable Codewords",
}

// parseRowLabel matches a header exactly, including case.
func parseRowLabel(header string) rowLabel {
	for label, name := range rowLabelNames {
		if name == header {
			return label
		}
	}
	return rowUnknown
}

func (l rowLabel) String() string {
	return rowLabelNames[l]
}

// applyDownstream stores a downstream table value. Values that fail to
// parse leave the field unset.
func (l rowLabel) applyDownstream(d *downstreamDraft, value string) {
	switch l {
	case rowLockStatus:
		d.lockStatus = some(value)
	case rowModulation:
		d.modulation = some(value)
	case rowFrequency:
		if v := parseFrequencyMHz(value); v.set {
			d.frequencyMHz = v
		}
	case rowSNR:
		if v := parseDecibel(value); v.set {
			d.snrDB = v
		}
	case rowPowerLevel:
		if v := parseDecibel(value); v.set {
			d.powerDB = v
		}
	}
}

func (l rowLabel) applyUpstream(d *upstreamDraft, value string) {
	switch l {
	case rowLockStatus:
		d.lockStatus = some(value)
	case rowModulation:
		d.modulation = some(value)
	case rowFrequency:
		if v := parseFrequencyMHz(value); v.set {
			d.frequencyMHz = v
		}
	case rowPowerLevel:
		if v := parseDecibel(value); v.set {
			d.powerDB = v
		}
	case rowSymbolRate:
		if v := parseSymbolRate(value); v.set {
			d.symbolRateKsps = v
		}
	}
}
