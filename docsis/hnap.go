package docsis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs/v2"
)

const (
	hnapRecordSeparator = "|+|"
	hnapFieldSeparator  = "^"

	hnapDownstreamFields = 9
	hnapUpstreamFields   = 7
)

var (
	hnapDownstreamPath = []string{"GetMultipleHNAPsResponse", "GetMotoStatusDownstreamChannelInfoResponse", "MotoConnDownstreamChannel"}
	hnapUpstreamPath   = []string{"GetMultipleHNAPsResponse", "GetMotoStatusUpstreamChannelInfoResponse", "MotoConnUpstreamChannel"}
	hnapUptimePath     = []string{"GetMultipleHNAPsResponse", "GetMotoStatusConnectionInfoResponse", "MotoConnSystemUpTime"}
)

// ParseHNAP decodes a GetMultipleHNAPs JSON reply as returned by the
// MB8600 family.
func ParseHNAP(raw []byte) (*ChannelModel, error) {
	obj, err := gabs.ParseJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return DecodeHNAP(obj)
}

// DecodeHNAP builds a ChannelModel from an already decoded HNAP reply.
// Any missing key, short record or unreadable number fails the whole
// response.
func DecodeHNAP(obj *gabs.Container) (*ChannelModel, error) {
	downstreamBlob, err := hnapString(obj, hnapDownstreamPath)
	if err != nil {
		return nil, err
	}
	upstreamBlob, err := hnapString(obj, hnapUpstreamPath)
	if err != nil {
		return nil, err
	}
	uptime, err := hnapString(obj, hnapUptimePath)
	if err != nil {
		return nil, err
	}

	model := newChannelModel()

	for _, fields := range hnapRecords(downstreamBlob) {
		c, err := parseHNAPDownstream(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: downstream record %q: %v", ErrMalformedResponse, strings.Join(fields, hnapFieldSeparator), err)
		}
		model.Downstream[c.Channel] = c
	}

	for _, fields := range hnapRecords(upstreamBlob) {
		c, err := parseHNAPUpstream(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: upstream record %q: %v", ErrMalformedResponse, strings.Join(fields, hnapFieldSeparator), err)
		}
		model.Upstream[c.Channel] = c
	}

	model.SystemUptimeSeconds = ParseUptime(uptime)

	return model, nil
}

func hnapString(obj *gabs.Container, path []string) (string, error) {
	if obj == nil || !obj.Exists(path...) {
		return "", fmt.Errorf("%w: missing %s", ErrMalformedResponse, strings.Join(path, "."))
	}
	s, ok := obj.Search(path...).Data().(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformedResponse, strings.Join(path, "."))
	}
	return s, nil
}

// hnapRecords splits a channel blob into trimmed field lists, skipping the
// empty records left behind by trailing separators.
func hnapRecords(blob string) [][]string {
	records := [][]string{}
	for _, record := range strings.Split(blob, hnapRecordSeparator) {
		if strings.TrimSpace(record) == "" {
			continue
		}
		fields := strings.Split(record, hnapFieldSeparator)
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		records = append(records, fields)
	}
	return records
}

func parseHNAPDownstream(fields []string) (c DownstreamChannel, err error) {
	if len(fields) < hnapDownstreamFields {
		return c, fmt.Errorf("got %d fields, want %d", len(fields), hnapDownstreamFields)
	}

	if c.Channel, err = parseChannelNumber(fields[0]); err != nil {
		return c, err
	}
	c.LockStatus = fields[1]
	c.Modulation = fields[2]
	if c.ChannelID, err = strconv.Atoi(fields[3]); err != nil {
		return c, err
	}
	if c.FrequencyMHz, err = strconv.ParseFloat(fields[4], 64); err != nil {
		return c, err
	}
	if c.PowerDB, err = strconv.ParseFloat(fields[5], 64); err != nil {
		return c, err
	}
	if c.SNRDB, err = strconv.ParseFloat(fields[6], 64); err != nil {
		return c, err
	}
	if c.CorrectedErrors, err = strconv.ParseUint(fields[7], 10, 64); err != nil {
		return c, err
	}
	if c.UncorrectedErrors, err = strconv.ParseUint(fields[8], 10, 64); err != nil {
		return c, err
	}
	return c, nil
}

func parseHNAPUpstream(fields []string) (c UpstreamChannel, err error) {
	if len(fields) < hnapUpstreamFields {
		return c, fmt.Errorf("got %d fields, want %d", len(fields), hnapUpstreamFields)
	}

	if c.Channel, err = parseChannelNumber(fields[0]); err != nil {
		return c, err
	}
	c.LockStatus = fields[1]
	c.Modulation = fields[2]
	if c.ChannelID, err = strconv.Atoi(fields[3]); err != nil {
		return c, err
	}
	if c.SymbolRateKsps, err = strconv.Atoi(fields[4]); err != nil {
		return c, err
	}
	if c.FrequencyMHz, err = strconv.ParseFloat(fields[5], 64); err != nil {
		return c, err
	}
	if c.PowerDB, err = strconv.ParseFloat(fields[6], 64); err != nil {
		return c, err
	}
	return c, nil
}

func parseChannelNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("channel number %d out of range", n)
	}
	return n, nil
}
