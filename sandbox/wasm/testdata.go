package wasm

// echoModule is a minimal module exporting apply (param i32 i32)
// (result i32 i32) that returns its input location unchanged, plus one page
// of exported memory.
var echoModule = []byte{
	0x00, 0x61, 0x73, 0x6d, // WASM_BINARY_MAGIC
	0x01, 0x00, 0x00, 0x00, // WASM_BINARY_VERSION
	// Type section
	0x01, 0x08,
	0x01,                                     // number of types
	0x60, 0x02, 0x7f, 0x7f, 0x02, 0x7f, 0x7f, // (func (param i32 i32) (result i32 i32))
	// Function section
	0x03, 0x02,
	0x01, // number of functions
	0x00, // function 0 uses type 0
	// Memory section
	0x05, 0x03,
	0x01,       // number of memories
	0x00, 0x01, // memory 0: min=1 page
	// Export section
	0x07, 0x12,
	0x02,                                                 // number of exports
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00, // export "memory"
	0x05, 0x61, 0x70, 0x70, 0x6c, 0x79, 0x00, 0x00, // export "apply"
	// Code section
	0x0a, 0x08,
	0x01,       // number of functions
	0x06,       // function body size
	0x00,       // number of local declarations
	0x20, 0x00, // local.get 0
	0x20, 0x01, // local.get 1
	0x0b, // end
}

// EchoModule returns a compiled module whose apply echoes its input. It backs
// the runner's tests and offline demos.
func EchoModule() []byte {
	out := make([]byte, len(echoModule))
	copy(out, echoModule)
	return out
}
