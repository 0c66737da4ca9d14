package hashing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEmptyInput(t *testing.T) {
	d := Compute(nil)

	// Defined empty-input digests of SHA-256 and SHA-512.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", d.Primary)
	assert.Equal(t,
		"cf83e1357eefb8bdf1542850d66d8007d620e4050b5715dc83f4a921d36ce9ce"+
			"47d0d13c5d85f2b0ff8318d2877eec2f63b931bd47417a81a538327af927da3e",
		d.Secondary)
}

func TestComputeKnownVector(t *testing.T) {
	d := Compute([]byte("abc"))

	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", d.Primary)
	assert.Equal(t,
		"ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a"+
			"2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f",
		d.Secondary)
}

func TestComputeDeterministic(t *testing.T) {
	data := bytes.Repeat([]byte("evidence"), 1024)
	first := Compute(data)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Compute(data))
	}
}

func TestComputeDigestWidths(t *testing.T) {
	d := Compute([]byte("x"))
	assert.Len(t, d.Primary, 64)
	assert.Len(t, d.Secondary, 128)
}

func TestComputeNearDuplicatesDiffer(t *testing.T) {
	base := bytes.Repeat([]byte{0xAB}, 4096)
	seen := map[string]struct{}{}

	corpus := [][]byte{base}
	for i := 0; i < len(base); i += 257 {
		variant := append([]byte(nil), base...)
		variant[i] ^= 0x01
		corpus = append(corpus, variant)
	}
	// Length variants of the same prefix.
	corpus = append(corpus, base[:len(base)-1], append(append([]byte(nil), base...), 0xAB))

	for _, b := range corpus {
		d := Compute(b)
		_, dup := seen[d.Primary+d.Secondary]
		require.False(t, dup, "digest collision in near-duplicate corpus")
		seen[d.Primary+d.Secondary] = struct{}{}
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	data := []byte("do not touch")
	snapshot := append([]byte(nil), data...)
	Compute(data)
	assert.Equal(t, snapshot, data)
}
