// internal/scanner/keymap.go
package scanner

// HID usage codes the decoder reacts to. Codes below usageFirst mean
// no key pressed and are dropped as noise.
const (
	usageFirst      = 0x04 // Keyboard a and A
	usageTerminator = 0x28 // Keyboard Return (ENTER)
	usageLast       = 0x33 // Keyboard ; and :
)

// keymap translates HID usage codes to ASCII, indexed by code minus
// usageFirst. The zero entries at 0x28..0x2B (Enter, Escape,
// Backspace, Tab) are deliberate blanks carried over from the legacy
// table; they advance the write position without storing a
// character.
var keymap = [48]byte{
	'A', 'B', 'C', 'D', // 0x04
	'E', 'F', 'G', 'H',
	'I', 'J', 'K', 'L',
	'M', 'N', 'O', 'P',
	'Q', 'R', 'S', 'T',
	'U', 'V', 'W', 'X',
	'Y', 'Z', '1', '2',
	'3', '4', '5', '6',
	'7', '8', '9', '0',
	0, 0, 0, 0, // 0x28 Enter, 0x29 Escape, 0x2A Backspace, 0x2B Tab
	' ', '-', '+', '[',
	']', '|', '~', ':',
}
