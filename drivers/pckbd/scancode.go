package pckbd

import "unicode"

// Scan code set 1 constants.
const (
	codeExtended  = 0xe0
	codeKeyError  = 0x00
	codeOverrun   = 0xff
	codeBreakBit  = 0x80
	codeLShift    = 0x2a
	codeRShift    = 0x36
	codeEnter     = 0x1c
	codeBackspace = 0x0e
)

var (
	// unshifted and shifted runes indexed by make code.
	runes   = map[uint8]rune{}
	shifted = map[uint8]rune{}
	// rune -> make code, and whether shift is needed.
	reverse = map[rune]keyRef{}

	names = map[uint8]string{
		0x01: "esc", codeBackspace: "backspace", 0x0f: "tab", codeEnter: "enter",
		0x1d: "lctrl", codeLShift: "lshift", codeRShift: "rshift", 0x38: "lalt",
		0x39: "space", 0x3a: "capslock",
	}
)

type keyRef struct {
	code  uint8
	shift bool
}

func init() {
	rows := []struct {
		first          uint8
		plain, upshift string
	}{
		{0x02, "1234567890-=", "!@#$%^&*()_+"},
		{0x10, "qwertyuiop[]", "QWERTYUIOP{}"},
		{0x1e, "asdfghjkl;'`", "ASDFGHJKL:\"~"},
		{0x2b, `\zxcvbnm,./`, "|ZXCVBNM<>?"},
	}
	for _, row := range rows {
		up := []rune(row.upshift)
		for i, r := range []rune(row.plain) {
			code := row.first + uint8(i)
			runes[code] = r
			shifted[code] = up[i]
			reverse[r] = keyRef{code, false}
			reverse[up[i]] = keyRef{code, true}
		}
	}
	runes[0x39], shifted[0x39] = ' ', ' '
	runes[codeEnter], shifted[codeEnter] = '\n', '\n'
	runes[0x0f], shifted[0x0f] = '\t', '\t'
	reverse[' '] = keyRef{0x39, false}
	reverse['\n'] = keyRef{codeEnter, false}
	reverse['\t'] = keyRef{0x0f, false}
}

// KeyEvent is one decoded key transition.
type KeyEvent struct {
	Scancode uint8 // make code without the break bit
	Extended bool  // preceded by 0xe0
	Pressed  bool
	Rune     rune   // 0 for non-printing keys
	Name     string // set for named keys such as enter or lshift
}

// Decoder turns a scan code set 1 byte stream into key events. It tracks
// the extended prefix and shift state.
type Decoder struct {
	extended bool
	lshift   bool
	rshift   bool
	caps     bool
}

// Feed consumes one byte. ok is false for prefix bytes and for the key
// error and overrun codes.
func (d *Decoder) Feed(b uint8) (ev KeyEvent, ok bool) {
	switch b {
	case codeKeyError, codeOverrun:
		return KeyEvent{}, false
	case codeExtended:
		d.extended = true
		return KeyEvent{}, false
	}
	ev = KeyEvent{
		Scancode: b &^ codeBreakBit,
		Extended: d.extended,
		Pressed:  b&codeBreakBit == 0,
	}
	d.extended = false

	if ev.Extended {
		ev.Name = "ext"
		return ev, true
	}
	switch ev.Scancode {
	case codeLShift:
		d.lshift = ev.Pressed
	case codeRShift:
		d.rshift = ev.Pressed
	case 0x3a:
		if ev.Pressed {
			d.caps = !d.caps
		}
	}

	r := runes[ev.Scancode]
	if d.lshift || d.rshift {
		r = shifted[ev.Scancode]
	}
	if d.caps && unicode.IsLetter(r) {
		if d.lshift || d.rshift {
			r = unicode.ToLower(r)
		} else {
			r = unicode.ToUpper(r)
		}
	}
	ev.Rune = r
	ev.Name = names[ev.Scancode]
	return ev, true
}

// Encode returns the make and break codes that type r, wrapped in a left
// shift press when needed.
func Encode(r rune) ([]uint8, bool) {
	k, ok := reverse[r]
	if !ok {
		return nil, false
	}
	seq := []uint8{k.code, k.code | codeBreakBit}
	if k.shift {
		seq = append([]uint8{codeLShift}, append(seq, codeLShift|codeBreakBit)...)
	}
	return seq, true
}
