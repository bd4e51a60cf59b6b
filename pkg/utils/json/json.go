// Package json 封装 JSON 编解码：amd64/arm64 上使用 sonic，其他平台回退到 encoding/json。
//
// 供应商请求体、SSE 事件和 Redis 缓存值都经由这里编解码。
package json

import (
	stdjson "encoding/json"
	"io"
	"runtime"

	"github.com/bytedance/sonic"
)

// RawMessage is a raw encoded JSON value.
type RawMessage = stdjson.RawMessage

// Encoder is a JSON encoder interface.
type Encoder interface {
	Encode(v interface{}) error
}

// Decoder is a JSON decoder interface.
type Decoder interface {
	Decode(v interface{}) error
}

// codec 一组编解码实现。
type codec struct {
	marshal    func(v interface{}) ([]byte, error)
	unmarshal  func(data []byte, v interface{}) error
	newEncoder func(w io.Writer) Encoder
	newDecoder func(r io.Reader) Decoder
}

var sonicCodec = codec{
	marshal:    sonic.Marshal,
	unmarshal:  sonic.Unmarshal,
	newEncoder: func(w io.Writer) Encoder { return sonic.ConfigDefault.NewEncoder(w) },
	newDecoder: func(r io.Reader) Decoder { return sonic.ConfigDefault.NewDecoder(r) },
}

var stdCodec = codec{
	marshal:    stdjson.Marshal,
	unmarshal:  stdjson.Unmarshal,
	newEncoder: func(w io.Writer) Encoder { return stdjson.NewEncoder(w) },
	newDecoder: func(r io.Reader) Decoder { return stdjson.NewDecoder(r) },
}

// active 当前平台使用的实现，sonic 仅支持 amd64 与 arm64。
var active = func() codec {
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		return sonicCodec
	}
	return stdCodec
}()

// Marshal encodes v into JSON bytes.
func Marshal(v interface{}) ([]byte, error) { return active.marshal(v) }

// Unmarshal decodes JSON bytes into v.
func Unmarshal(data []byte, v interface{}) error { return active.unmarshal(data, v) }

// NewEncoder creates a JSON encoder writing to w.
func NewEncoder(w io.Writer) Encoder { return active.newEncoder(w) }

// NewDecoder creates a JSON decoder reading from r.
func NewDecoder(r io.Reader) Decoder { return active.newDecoder(r) }
