// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package slip

// Encode escapes msg and appends the END terminator.
// END becomes ESC ESC_END and ESC becomes ESC ESC_ESC.
func Encode(msg []byte) []byte {
	result := make([]byte, 0, len(msg)+len(msg)/8+1)

	for _, b := range msg {
		switch b {
		case End:
			result = append(result, Esc, EscEnd)
		case Esc:
			result = append(result, Esc, EscEsc)
		default:
			result = append(result, b)
		}
	}

	return append(result, End)
}
