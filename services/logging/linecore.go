package logging

import (
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// LineCore is a zapcore.Core writing one plain line per entry:
//
//	INFO kernel: device connected id=pc-keyboard
//
// It uses no encoder, buffer pool or reflection, which keeps it small
// enough for board images.
type LineCore struct {
	zapcore.LevelEnabler

	w   io.Writer
	mu  *sync.Mutex
	ctx []byte // fields added through With, already formatted
}

func NewLineCore(w io.Writer, enab zapcore.LevelEnabler) *LineCore {
	return &LineCore{LevelEnabler: enab, w: w, mu: new(sync.Mutex)}
}

func (c *LineCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.ctx = appendFields(append([]byte(nil), c.ctx...), fields)
	return &clone
}

func (c *LineCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *LineCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	line := make([]byte, 0, 96)
	line = append(line, e.Level.CapitalString()...)
	if e.LoggerName != "" {
		line = append(line, ' ')
		line = append(line, e.LoggerName...)
	}
	line = append(line, ": "...)
	line = append(line, e.Message...)
	line = append(line, c.ctx...)
	line = appendFields(line, fields)
	line = append(line, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.w.Write(line)
	return err
}

func (c *LineCore) Sync() error { return nil }

func appendFields(b []byte, fields []zapcore.Field) []byte {
	for _, f := range fields {
		enc := zapcore.NewMapObjectEncoder()
		f.AddTo(enc)
		b = appendMap(b, enc.Fields, true)
	}
	return b
}

// appendMap writes space separated k=v pairs in key order. lead adds a
// space before the first pair too.
func appendMap(b []byte, m map[string]any, lead bool) []byte {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 || lead {
			b = append(b, ' ')
		}
		b = append(b, k...)
		b = append(b, '=')
		b = appendValue(b, m[k])
	}
	return b
}

func appendValue(b []byte, v any) []byte {
	switch x := v.(type) {
	case string:
		return append(b, x...)
	case []byte:
		return append(b, x...)
	case bool:
		return strconv.AppendBool(b, x)
	case int:
		return strconv.AppendInt(b, int64(x), 10)
	case int8:
		return strconv.AppendInt(b, int64(x), 10)
	case int16:
		return strconv.AppendInt(b, int64(x), 10)
	case int32:
		return strconv.AppendInt(b, int64(x), 10)
	case int64:
		return strconv.AppendInt(b, x, 10)
	case uint:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint8:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint16:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint32:
		return strconv.AppendUint(b, uint64(x), 10)
	case uint64:
		return strconv.AppendUint(b, x, 10)
	case uintptr:
		return strconv.AppendUint(b, uint64(x), 10)
	case float32:
		return strconv.AppendFloat(b, float64(x), 'g', -1, 32)
	case float64:
		return strconv.AppendFloat(b, x, 'g', -1, 64)
	case time.Duration:
		return append(b, x.String()...)
	case time.Time:
		return x.AppendFormat(b, time.RFC3339)
	case []any:
		b = append(b, '[')
		for i, e := range x {
			if i > 0 {
				b = append(b, ' ')
			}
			b = appendValue(b, e)
		}
		return append(b, ']')
	case map[string]any:
		b = append(b, '{')
		b = appendMap(b, x, false)
		return append(b, '}')
	case error:
		return append(b, x.Error()...)
	case interface{ String() string }:
		return append(b, x.String()...)
	}
	return append(b, '?')
}
