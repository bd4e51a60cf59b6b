package llm

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// SSEDecoder reads server-sent events and yields the data payload of each
// event. Multi-line data fields are joined with "\n"; comments and events
// without data are skipped.
type SSEDecoder struct {
	r *bufio.Reader
}

// NewSSEDecoder creates a decoder over r.
func NewSSEDecoder(r io.Reader) *SSEDecoder {
	return &SSEDecoder{r: bufio.NewReader(r)}
}

// Next returns the data of the next event, or io.EOF when the stream ends.
func (d *SSEDecoder) Next() (string, error) {
	var data []string
	for {
		line, err := d.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if len(data) > 0 {
				return strings.Join(data, "\n"), nil
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}

		if eof {
			if len(data) > 0 {
				return strings.Join(data, "\n"), nil
			}
			return "", io.EOF
		}
	}
}

// SSEExtractFunc 从一个事件的数据中取出文本。done 为 true 表示流已结束。
type SSEExtractFunc func(data string) (text string, done bool, err error)

// sseTextStream 将 SSE 响应体适配为 TextStream。
type sseTextStream struct {
	body    io.ReadCloser
	dec     *SSEDecoder
	extract SSEExtractFunc
	done    bool
}

// NewSSETextStream 返回读取 body 中 SSE 事件的 TextStream，Close 时关闭 body。
// 不含文本的事件会被跳过。
func NewSSETextStream(body io.ReadCloser, extract SSEExtractFunc) TextStream {
	return &sseTextStream{body: body, dec: NewSSEDecoder(body), extract: extract}
}

func (s *sseTextStream) Recv() (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}
		data, err := s.dec.Next()
		if err != nil {
			return "", err
		}
		text, done, err := s.extract(data)
		if err != nil {
			return "", err
		}
		s.done = done
		if text != "" {
			return text, nil
		}
	}
}

func (s *sseTextStream) Close() error {
	return s.body.Close()
}
