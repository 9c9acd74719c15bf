package docsis

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/prometheus/common/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const uptimeLabel = "System Uptime:"

var (
	digitRunRegex   = regexp.MustCompile(`\d+`)
	nonDigitRegex   = regexp.MustCompile(`[^\d]`)
	frequencyRegex  = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(\w*)`)
	decibelRegex    = regexp.MustCompile(`^([+-]?\d+(?:\.\d+)?)`)
	symbolRateRegex = regexp.MustCompile(`^(\d+)`)
)

// ParseHTML decodes the network_setup.jst page served by the CGM4331COM and
// CGM4981COM families. Missing or unreadable parts of the page leave the
// corresponding fields at their zero value; only a document that cannot be
// read at all is an error.
func ParseHTML(raw []byte) (*ChannelModel, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	model := newChannelModel()

	if uptime, ok := findLabelValue(doc, uptimeLabel); ok {
		log.Debugf("Found uptime: %s", uptime)
		model.SystemUptimeSeconds = ParseUptime(uptime)
	} else {
		log.Debugln("Could not find uptime in HTML response")
	}

	tables := findAll(doc, atom.Tbody)
	log.Debugf("Found %d tables in HTML response", len(tables))
	if len(tables) < 3 {
		return model, nil
	}

	downstream := readChannelTable(tables[0], false)
	upstream := readChannelTable(tables[1], false)
	errorCounts := readChannelTable(tables[2], true)

	for i, draft := range downstream.downstreamDrafts() {
		model.Downstream[i+1] = draft.build(i + 1)
	}
	for i, draft := range upstream.upstreamDrafts() {
		model.Upstream[i+1] = draft.build(i + 1)
	}
	errorCounts.applyErrorCounts(model.Downstream)

	log.Debugf("Parsed %d downstream channels and %d upstream channels", len(model.Downstream), len(model.Upstream))
	return model, nil
}

// channelTable holds the rows of one tbody keyed by header, in the order the
// headers first appeared. A repeated header replaces the earlier row.
type channelTable struct {
	order []string
	rows  map[string][]string
}

func readChannelTable(bodyNode *html.Node, errorTable bool) *channelTable {
	t := &channelTable{rows: map[string][]string{}}

	for _, row := range parseRowGroup(bodyNode) {
		values := row.values
		if len(values) == 0 {
			values = t.fallbackValues(row, errorTable)
		}

		if _, seen := t.rows[row.header]; !seen {
			t.order = append(t.order, row.header)
		}
		t.rows[row.header] = values
		log.Debugf("Row %q has %d values", row.header, len(values))
	}
	return t
}

// fallbackValues recovers per-channel values from the header cell when the
// firmware rendered them as one flattened text run instead of value cells.
func (t *channelTable) fallbackValues(row tableRow, errorTable bool) []string {
	label := parseRowLabel(row.header)
	if label != rowChannelID && !errorTable {
		return nil
	}

	blob, ok := row.valueBlob()
	if !ok {
		return nil
	}

	switch label {
	case rowChannelID:
		runs := digitRunRegex.FindAllString(blob, -1)
		if len(runs) == 1 && len(runs[0]) > 3 {
			return splitConcatenatedIDs(runs[0])
		}
		return runs
	case rowCorrectable, rowUncorrectable:
		if ids, ok := t.rows[rowChannelID.String()]; ok {
			if chunks := splitEqualChunks(nonDigitRegex.ReplaceAllString(blob, ""), len(ids)); chunks != nil {
				return chunks
			}
		}
		return digitRunRegex.FindAllString(blob, -1)
	}
	return nil
}

// splitConcatenatedIDs breaks a run of digits made of several channel ids
// printed without separators. Ids are assumed to stay below 100, so the run
// is cut into pairs and an odd run ends with a single digit. This only
// approximates the real boundaries.
func splitConcatenatedIDs(run string) []string {
	ids := []string{}
	for i := 0; i < len(run); i += 2 {
		if i+2 > len(run) {
			ids = append(ids, run[i:])
			break
		}
		ids = append(ids, run[i:i+2])
	}
	return ids
}

// splitEqualChunks cuts digits into n chunks of equal width, dropping any
// remainder. It returns nil when no chunk would hold a digit. Counters of
// different widths end up misaligned.
func splitEqualChunks(digits string, n int) []string {
	if n <= 0 {
		return nil
	}
	size := len(digits) / n
	if size == 0 {
		return nil
	}
	chunks := make([]string, 0, n)
	for i := 0; i < n; i++ {
		chunks = append(chunks, digits[i*size:(i+1)*size])
	}
	return chunks
}

func (t *channelTable) channelCount() int {
	count := 0
	for _, values := range t.rows {
		if len(values) > count {
			count = len(values)
		}
	}
	return count
}

// channelIDs returns the ids found in the Channel ID row, unset where a
// value is missing or not a number.
func (t *channelTable) channelIDs(count int) []optional[int] {
	ids := make([]optional[int], count)
	values := t.rows[rowChannelID.String()]
	for i := 0; i < count && i < len(values); i++ {
		if v, err := strconv.Atoi(values[i]); err == nil {
			ids[i] = some(v)
		}
	}
	return ids
}

func (t *channelTable) downstreamDrafts() []downstreamDraft {
	count := t.channelCount()
	drafts := make([]downstreamDraft, count)
	for i, id := range t.channelIDs(count) {
		drafts[i].channelID = id
	}

	for _, header := range t.order {
		label := parseRowLabel(header)
		for i, value := range t.rows[header] {
			if i >= count {
				break
			}
			label.applyDownstream(&drafts[i], value)
		}
	}
	return drafts
}

func (t *channelTable) upstreamDrafts() []upstreamDraft {
	count := t.channelCount()
	drafts := make([]upstreamDraft, count)
	for i, id := range t.channelIDs(count) {
		drafts[i].channelID = id
	}

	for _, header := range t.order {
		label := parseRowLabel(header)
		for i, value := range t.rows[header] {
			if i >= count {
				break
			}
			label.applyUpstream(&drafts[i], value)
		}
	}
	return drafts
}

// applyErrorCounts writes codeword counters into downstream channels by
// position. It does nothing unless the channel id row and both counter rows
// are present.
func (t *channelTable) applyErrorCounts(downstream map[int]DownstreamChannel) {
	ids, ok := t.rows[rowChannelID.String()]
	if !ok {
		return
	}
	corrected, ok := t.rows[rowCorrectable.String()]
	if !ok {
		return
	}
	uncorrected, ok := t.rows[rowUncorrectable.String()]
	if !ok {
		return
	}

	for i := range ids {
		channel := i + 1
		c, ok := downstream[channel]
		if !ok {
			continue
		}
		if i < len(corrected) {
			if v, err := strconv.ParseUint(corrected[i], 10, 64); err == nil {
				c.CorrectedErrors = v
			}
		}
		if i < len(uncorrected) {
			if v, err := strconv.ParseUint(uncorrected[i], 10, 64); err == nil {
				c.UncorrectedErrors = v
			}
		}
		downstream[channel] = c
	}
}

func parseFrequencyMHz(value string) optional[float64] {
	m := frequencyRegex.FindStringSubmatch(value)
	if m == nil {
		return optional[float64]{}
	}
	freq, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return optional[float64]{}
	}
	if m[2] != "MHz" && freq > 1000000 {
		freq /= 1000000.0
	}
	return some(freq)
}

func parseDecibel(value string) optional[float64] {
	m := decibelRegex.FindStringSubmatch(value)
	if m == nil {
		return optional[float64]{}
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return optional[float64]{}
	}
	return some(v)
}

func parseSymbolRate(value string) optional[int] {
	m := symbolRateRegex.FindStringSubmatch(value)
	if m == nil {
		return optional[int]{}
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return optional[int]{}
	}
	return some(v)
}
