package protocol

// Records is a batch of TLV records, e.g. ops read from the log or
// received from a peer.
type Records [][]byte

func (recs Records) TotalLen() (total int64) {
	for _, r := range recs {
		total += int64(len(r))
	}
	return
}
