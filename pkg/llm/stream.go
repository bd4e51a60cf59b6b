package llm

import (
	"errors"
	"io"
	"strings"
)

// sliceStream 按顺序返回预先给定的文本块。
type sliceStream struct {
	parts  []string
	err    error
	closed bool
}

// NewSliceStream 返回依次产出 parts 后以 io.EOF 结束的 TextStream。
// 若 err 非空，则在 parts 之后返回该错误。
func NewSliceStream(err error, parts ...string) TextStream {
	return &sliceStream{parts: parts, err: err}
}

func (s *sliceStream) Recv() (string, error) {
	if s.closed {
		return "", io.ErrClosedPipe
	}
	if len(s.parts) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	part := s.parts[0]
	s.parts = s.parts[1:]
	return part, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

// ReadAll 读取并关闭 stream，返回拼接后的全文。
func ReadAll(stream TextStream) (string, error) {
	defer func() { _ = stream.Close() }()

	var sb strings.Builder
	for {
		part, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(part)
	}
}
