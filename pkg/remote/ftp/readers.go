package ftp

import (
	"bufio"
	"bytes"
	"io"
)

// chunkReader never returns more than `size` bytes from a single Read.
type chunkReader struct {
	r    io.Reader
	size int
}

func newChunkReader(r io.Reader, size int) io.Reader {
	return &chunkReader{r: r, size: size}
}

func (cr *chunkReader) Read(p []byte) (int, error) {
	if len(p) > cr.size {
		p = p[:cr.size]
	}
	return cr.r.Read(p)
}

var crlf = []byte("\r\n")

// lineReader rewrites every line to end with CRLF, as required for ASCII
// transfers. A final line without a terminator gets one as well.
type lineReader struct {
	r   *bufio.Reader
	buf bytes.Buffer
	err error
}

func newLineReader(r io.Reader) io.Reader {
	return &lineReader{r: bufio.NewReader(r)}
}

func (lr *lineReader) Read(p []byte) (int, error) {
	for lr.buf.Len() == 0 && lr.err == nil {
		lr.fill()
	}

	if lr.buf.Len() > 0 {
		return lr.buf.Read(p)
	}
	return 0, lr.err
}

func (lr *lineReader) fill() {
	line, err := lr.r.ReadBytes('\n')
	if len(line) > 0 {
		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		lr.buf.Write(line)
		lr.buf.Write(crlf)
	}
	if err != nil {
		lr.err = err
	}
}
