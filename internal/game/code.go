package game

import "math/rand/v2"

// codeAlphabet excludes I, O, 0 and 1 so codes stay readable when shouted
// across a room or typed from a projector.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 6

// GenerateJoinCode returns a 6-character join code drawn uniformly at random
// with replacement. Uniqueness across concurrently active games is not
// enforced here.
func GenerateJoinCode() string {
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(buf)
}
