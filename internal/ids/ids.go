package ids

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ulidEntropy   = ulid.Monotonic(mrand.New(mrand.NewSource(time.Now().UnixNano())), 0)
	ulidEntropyMu sync.Mutex
)

// New returns a lexically sortable unique id.
func New() string {
	ulidEntropyMu.Lock()
	defer ulidEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// No vowels so codes never spell words.
const roomCodeCharset = "BCDFGHJKLMNPQRSTVWXYZ0123456789"

// RoomCode returns a short shareable room code like "SF-X9J2".
func RoomCode() (string, error) {
	code := make([]byte, 4)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = roomCodeCharset[num.Int64()]
	}
	return "SF-" + string(code), nil
}
