package context

// Fingering label bits. Each code's label is the OR of its adjacent key
// pairs' classifications; bits 5-7 are reserved.
const (
	FingeringSameHand uint8 = 1 << iota
	FingeringLargeJump
	FingeringSmallJump
	FingeringLittleFinger
	FingeringUpsideDown
)

// qwertyLeft and qwertyRight are the standard physical layout, one row per
// entry, columns ordered from the center of the keyboard outward so that a
// column index maps onto the finger covering it.
var qwertyLeft = [][]rune{
	{'5', '4', '3', '2', '1'},
	{'t', 'r', 'e', 'w', 'q'},
	{'g', 'f', 'd', 's', 'a'},
	{'b', 'v', 'c', 'x', 'z'},
}

var qwertyRight = [][]rune{
	{'6', '7', '8', '9', '0', '-', '='},
	{'y', 'u', 'i', 'o', 'p', '[', ']'},
	{'h', 'j', 'k', 'l', ';', '\''},
	{'n', 'm', ',', '.', '/'},
}

// columnFinger maps a center-out column index to the finger covering it:
// 2 = index, 3 = middle, 4 = ring, 5 = little.
var columnFinger = [7]int{2, 2, 3, 4, 5, 5, 5}

func isLongFinger(f int) bool  { return f == 3 || f == 4 }
func isShortFinger(f int) bool { return f == 2 || f == 5 }

// fingeringPairLabels classifies every same-hand key pair of the physical
// layout. Cross-hand pairs carry no label: alternating hands is the neutral
// case every channel measures defects against.
func fingeringPairLabels() map[[2]rune]uint8 {
	labels := make(map[[2]rune]uint8)
	classifyHand(labels, qwertyLeft)
	classifyHand(labels, qwertyRight)
	return labels
}

func classifyHand(labels map[[2]rune]uint8, layout [][]rune) {
	for row1, content1 := range layout {
		for row2, content2 := range layout {
			for col1, char1 := range content1 {
				for col2, char2 := range content2 {
					pair := [2]rune{char1, char2}
					label := FingeringSameHand
					finger1 := columnFinger[col1]
					finger2 := columnFinger[col2]
					rowDiff := row1 - row2
					if rowDiff < 0 {
						rowDiff = -rowDiff
					}
					if finger1 == finger2 {
						if rowDiff >= 2 {
							label |= FingeringLargeJump
						} else if rowDiff == 1 {
							label |= FingeringSmallJump
						}
					}
					if (finger1 == 5 && finger2 >= 3) || (finger2 == 5 && finger1 >= 3) {
						label |= FingeringLittleFinger
					}
					// A short finger reaching above a long finger (or a
					// long finger reaching below a short one) rolls the
					// hand upside down once the rows are far enough apart.
					awkward1 := row1 < row2 && isShortFinger(finger1) && isLongFinger(finger2)
					awkward2 := row1 > row2 && isLongFinger(finger1) && isShortFinger(finger2)
					if (awkward1 || awkward2) && rowDiff >= 2 {
						label |= FingeringUpsideDown
					}
					labels[pair] |= label
				}
			}
		}
	}
}
