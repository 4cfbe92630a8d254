// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package display

// Control message builders create the short client → device messages.
// Serial and USB transports send them as-is; the MIDI transport wraps them
// in a SysEx envelope.

// EnableMessage asks the device to start streaming its display
func EnableMessage() []byte {
	return []byte{TagEnable}
}

// ResetMessage asks the device to redraw the whole screen
func ResetMessage() []byte {
	return []byte{TagReset}
}

// DisconnectMessage tells the device the client is going away
func DisconnectMessage() []byte {
	return []byte{TagDisconnect}
}

// ControllerMessage sends the pressed-key bitmask (KeyUp, KeyEdit, ...).
// Send a zero mask to release all keys.
func ControllerMessage(mask uint8) []byte {
	return []byte{TagController, mask}
}

// KeyJazzMessage plays a note on the device. Use NoteOff to release it.
func KeyJazzMessage(note, velocity uint8) []byte {
	if velocity > 0x7F {
		velocity = 0x7F
	}
	return []byte{TagKeyJazz, note, velocity}
}
