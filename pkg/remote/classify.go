package remote

import (
	"bytes"
	"io"
)

const (
	sampleSize = 512

	// Samples with a larger share of non-printable bytes are binary.
	maxNonPrintable = 0.30
)

// Classify reads a sample from the start of `r` and picks the transfer mode.
// It returns a reader that yields the full contents, including the sample.
func Classify(r io.Reader) (TransferMode, io.Reader, error) {
	sample := make([]byte, sampleSize)
	n, err := io.ReadFull(r, sample)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Binary, nil, err
	}
	sample = sample[:n]

	mode := Binary
	if IsText(sample) {
		mode = Text
	}
	return mode, io.MultiReader(bytes.NewReader(sample), r), nil
}

// IsText returns whether `sample` looks like text. Empty samples are text,
// and any null byte makes the sample binary.
func IsText(sample []byte) bool {
	if len(sample) == 0 {
		return true
	}
	if bytes.IndexByte(sample, 0) != -1 {
		return false
	}

	var nonPrintable int
	for _, b := range sample {
		if !isPrintable(b) {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(sample)) <= maxNonPrintable
}

func isPrintable(b byte) bool {
	switch b {
	case '\n', '\r', '\t', '\b':
		return true
	}
	return b >= 32 && b <= 126
}
