package transport

import (
	"sort"
	"strings"

	"github.com/drpcorg/swarmdb/utils"
)

const FrameSep = "#"

// Frame labels a set of object ids: "#id1#id2...", ids sorted, so
// equal sets make equal frames
type Frame string

func NewFrame(ids []string) Frame {
	sorted := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			sorted = append(sorted, id)
		}
	}
	sort.Strings(sorted)
	var b strings.Builder
	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			continue
		}
		b.WriteString(FrameSep)
		b.WriteString(id)
	}
	return Frame(b.String())
}

func SetFrame(ids map[string]struct{}) Frame {
	return NewFrame(utils.SortedKeys(ids))
}

// IDs lists the ids; empty parts of a malformed frame are skipped
func (f Frame) IDs() (ids []string) {
	for _, id := range strings.Split(string(f), FrameSep) {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return
}

func (f Frame) IsEmpty() bool {
	return len(f.IDs()) == 0
}

// Minus is the frame of ids present in f but not in the set
func (f Frame) Minus(ids map[string]struct{}) Frame {
	var off []string
	for _, id := range f.IDs() {
		if _, ok := ids[id]; !ok {
			off = append(off, id)
		}
	}
	return NewFrame(off)
}

func (f Frame) String() string {
	return string(f)
}
