package wasmhost

import "github.com/tetratelabs/wazero/api"

// guestImport is a host function the test guest imports and re-exports
// through a trampoline of the same name.
type guestImport struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}

// buildGuest encodes a core wasm module that imports each function from
// module, exports a one-page "memory", and exports one trampoline per import
// that forwards its parameters unchanged.
func buildGuest(module string, imports []guestImport) []byte {
	n := len(imports)

	types := uleb(uint32(n))
	for _, f := range imports {
		types = append(types, 0x60)
		types = append(types, uleb(uint32(len(f.params)))...)
		types = append(types, f.params...)
		types = append(types, uleb(uint32(len(f.results)))...)
		types = append(types, f.results...)
	}

	imps := uleb(uint32(n))
	for i, f := range imports {
		imps = append(imps, wasmName(module)...)
		imps = append(imps, wasmName(f.name)...)
		imps = append(imps, 0x00)
		imps = append(imps, uleb(uint32(i))...)
	}

	funcs := uleb(uint32(n))
	for i := range imports {
		funcs = append(funcs, uleb(uint32(i))...)
	}

	memory := []byte{0x01, 0x00, 0x01}

	exports := uleb(uint32(n + 1))
	exports = append(exports, wasmName("memory")...)
	exports = append(exports, 0x02, 0x00)
	for i, f := range imports {
		exports = append(exports, wasmName(f.name)...)
		exports = append(exports, 0x00)
		exports = append(exports, uleb(uint32(n+i))...)
	}

	code := uleb(uint32(n))
	for i, f := range imports {
		body := []byte{0x00}
		for p := range f.params {
			body = append(body, 0x20)
			body = append(body, uleb(uint32(p))...)
		}
		body = append(body, 0x10)
		body = append(body, uleb(uint32(i))...)
		body = append(body, 0x0b)

		code = append(code, uleb(uint32(len(body)))...)
		code = append(code, body...)
	}

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(1, types)...)
	out = append(out, section(2, imps)...)
	out = append(out, section(3, funcs)...)
	out = append(out, section(5, memory)...)
	out = append(out, section(7, exports)...)
	out = append(out, section(10, code)...)
	return out
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint32(len(payload)))...)
	return append(out, payload...)
}

func wasmName(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}
