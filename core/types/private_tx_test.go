package types

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	testSender   = common.HexToAddress("0x627306090abab3a6e1400e9345bc60c78a8bef57")
	testContract = common.HexToAddress("0x0bac79b78b9866ef11c989ad21a7fcf15f7a18d7")
	testFrom     = bytes.Repeat([]byte{0xa1}, 32)
	testFor      = bytes.Repeat([]byte{0xb2}, 32)
	testGroup    = bytes.Repeat([]byte{0xc3}, 32)
)

func marker(b byte) *byte { return &b }

func legacyTx() *PrivateTransaction {
	return NewPrivateTx(&PrivateTxData{
		ChainID:     big.NewInt(2018),
		Nonce:       7,
		GasPrice:    big.NewInt(1000),
		Gas:         3000000,
		To:          &testContract,
		Value:       new(big.Int),
		Data:        []byte{0x60, 0x80},
		From:        testSender,
		V:           big.NewInt(4072),
		R:           big.NewInt(11),
		S:           big.NewInt(12),
		PrivateFrom: testFrom,
		PrivateFor:  [][]byte{testFor},
	})
}

func TestPrivateTxRLPRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data PrivateTxData
	}{
		{"legacy", PrivateTxData{From: testSender, To: &testContract, PrivateFrom: testFrom, PrivateFor: [][]byte{testFor}}},
		{"legacy-empty-for", PrivateTxData{From: testSender, PrivateFrom: testFrom, PrivateFor: [][]byte{}}},
		{"grouped", PrivateTxData{From: testSender, Nonce: 3, PrivateFrom: testFrom, PrivacyGroupID: testGroup, Restriction: Unrestricted}},
		{"marker-only", PrivateTxData{From: testSender, PrivateFrom: testFrom, PrivacyGroupID: testGroup, ExtendedPrivacy: marker(0x01)}},
		{"marker-and-args", PrivateTxData{From: testSender, To: &testContract, PrivateFrom: testFrom, PrivacyGroupID: testGroup, ExtendedPrivacy: marker(0x02), PrivateArgs: []byte{1, 2, 3}}},
		{"args-without-marker", PrivateTxData{From: testSender, PrivateFrom: testFrom, PrivacyGroupID: testGroup, PrivateArgs: []byte{9}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := NewPrivateTx(&tt.data)
			enc, err := tx.MarshalBinary()
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			var dec PrivateTransaction
			if err := dec.UnmarshalBinary(enc); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			reenc, err := dec.MarshalBinary()
			if err != nil {
				t.Fatalf("re-encode failed: %v", err)
			}
			if !bytes.Equal(enc, reenc) {
				t.Fatalf("encoding mismatch\nhave %x\nwant %x\n%s", reenc, enc, spew.Sdump(dec.inner))
			}
			if dec.Hash() != tx.Hash() {
				t.Fatalf("hash mismatch: have %x want %x", dec.Hash(), tx.Hash())
			}
			if dec.HasExtendedPrivacy() != tx.HasExtendedPrivacy() {
				t.Fatalf("extended privacy flag mismatch")
			}
			_, haveArgs := dec.PrivateArgs()
			_, wantArgs := tx.PrivateArgs()
			if haveArgs != wantArgs {
				t.Fatalf("private args presence mismatch: have %v want %v", haveArgs, wantArgs)
			}
			_, haveLegacy := dec.PrivateFor()
			_, wantLegacy := tx.PrivateFor()
			if haveLegacy != wantLegacy {
				t.Fatalf("addressing mode mismatch: have legacy=%v want legacy=%v", haveLegacy, wantLegacy)
			}
		})
	}
}

func TestPrivateTxDecodeRejectsInvalid(t *testing.T) {
	tx := NewPrivateTx(&PrivateTxData{From: testSender, PrivateFrom: testFrom, PrivacyGroupID: testGroup, Restriction: "public"})
	enc, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var dec PrivateTransaction
	if err := dec.UnmarshalBinary(enc); !errors.Is(err, ErrInvalidRestriction) {
		t.Fatalf("expected ErrInvalidRestriction, got %v", err)
	}
	if err := dec.UnmarshalBinary([]byte{0xc0}); err == nil {
		t.Fatalf("expected decode failure for empty list")
	}
	if err := rlp.DecodeBytes([]byte("junk"), &dec); err == nil {
		t.Fatalf("expected decode failure for junk input")
	}
}

func TestPrivateTxIsImmutable(t *testing.T) {
	args := []byte{1, 2, 3}
	to := testContract
	data := &PrivateTxData{From: testSender, To: &to, PrivateFrom: testFrom, PrivacyGroupID: testGroup, ExtendedPrivacy: marker(0x02), PrivateArgs: args}
	tx := NewPrivateTx(data)

	args[0] = 0xff
	data.To[0] = 0xff
	*data.ExtendedPrivacy = 0x07

	got, _ := tx.PrivateArgs()
	if got[0] != 1 {
		t.Fatalf("private args aliased the literal")
	}
	if *tx.To() != testContract {
		t.Fatalf("recipient aliased the literal")
	}
	if m, _ := tx.ExtendedPrivacy(); m != 0x02 {
		t.Fatalf("marker aliased the literal: %x", m)
	}
	got[1] = 0xff
	if again, _ := tx.PrivateArgs(); again[1] != 2 {
		t.Fatalf("accessor returned internal slice")
	}
}

func TestWithPrivateArgs(t *testing.T) {
	tx := NewPrivateTx(&PrivateTxData{
		Nonce: 9, From: testSender, To: &testContract, Data: []byte{0xde, 0xad},
		PrivateFrom: testFrom, PrivacyGroupID: testGroup, ExtendedPrivacy: marker(0x02), PrivateArgs: []byte{1, 2, 3},
	})
	blinded := tx.WithPrivateArgs(make([]byte, 3))

	args, ok := blinded.PrivateArgs()
	if !ok || !bytes.Equal(args, []byte{0, 0, 0}) {
		t.Fatalf("unexpected blinded args: %x (present %v)", args, ok)
	}
	orig, _ := tx.PrivateArgs()
	if !bytes.Equal(orig, []byte{1, 2, 3}) {
		t.Fatalf("original args modified: %x", orig)
	}
	if blinded.Nonce() != 9 || blinded.Sender() != testSender || *blinded.To() != testContract || !bytes.Equal(blinded.Data(), []byte{0xde, 0xad}) {
		t.Fatalf("clone lost fields: %s", spew.Sdump(blinded.inner))
	}
	if m, ok := blinded.ExtendedPrivacy(); !ok || m != 0x02 {
		t.Fatalf("clone lost extended privacy marker")
	}
	if id, ok := blinded.PrivacyGroupID(); !ok || !bytes.Equal(id, testGroup) {
		t.Fatalf("clone lost privacy group id")
	}
}

func TestDeterminePrivacyGroupID(t *testing.T) {
	grouped := NewPrivateTx(&PrivateTxData{From: testSender, PrivateFrom: testFrom, PrivacyGroupID: testGroup})
	if !bytes.Equal(grouped.DeterminePrivacyGroupID(), testGroup) {
		t.Fatalf("grouped tx must use its explicit group id")
	}

	legacy := legacyTx()
	id := legacy.DeterminePrivacyGroupID()
	if len(id) != 32 {
		t.Fatalf("unexpected legacy group id length %d", len(id))
	}
	// Member order and duplicates don't change the group.
	if !bytes.Equal(id, LegacyPrivacyGroupID(testFor, [][]byte{testFrom, testFor})) {
		t.Fatalf("legacy group id depends on member order")
	}
	if bytes.Equal(id, LegacyPrivacyGroupID(testFrom, nil)) {
		t.Fatalf("distinct member sets produced the same group id")
	}
}

func legacyGroupID(t *testing.T, ordered ...[]byte) []byte {
	t.Helper()
	enc, err := rlp.EncodeToBytes(ordered)
	if err != nil {
		t.Fatalf("encode members: %v", err)
	}
	return crypto.Keccak256(enc)
}

func TestLegacyPrivacyGroupIDMemberOrder(t *testing.T) {
	// 0x80 hashes to -97 and 0x01 to 32, so 0x80 sorts first.
	low, high := []byte{0x01}, []byte{0x80}
	if have, want := LegacyPrivacyGroupID(low, [][]byte{high}), legacyGroupID(t, high, low); !bytes.Equal(have, want) {
		t.Fatalf("members not ordered by hash: have %x want %x", have, want)
	}
	if have, want := LegacyPrivacyGroupID(low, [][]byte{high, low, high}), legacyGroupID(t, high, low); !bytes.Equal(have, want) {
		t.Fatalf("duplicates not removed: have %x want %x", have, want)
	}

	// Both keys hash to 992 and keep their first-seen order.
	a, b := []byte{0x01, 0x00}, []byte{0x00, 0x1f}
	if memberHash(a) != memberHash(b) {
		t.Fatalf("expected equal member hashes, have %d and %d", memberHash(a), memberHash(b))
	}
	if have, want := LegacyPrivacyGroupID(a, [][]byte{b}), legacyGroupID(t, a, b); !bytes.Equal(have, want) {
		t.Fatalf("tie order not kept: have %x want %x", have, want)
	}
	if have, want := LegacyPrivacyGroupID(b, [][]byte{a}), legacyGroupID(t, b, a); !bytes.Equal(have, want) {
		t.Fatalf("tie order not kept: have %x want %x", have, want)
	}
}

func TestMemberHash(t *testing.T) {
	tests := []struct {
		key  []byte
		want int32
	}{
		{nil, 1},
		{[]byte{0x00}, 31},
		{[]byte{0x7f}, 158},
		{[]byte{0xff}, 30},
		{[]byte{0x80}, -97},
		{bytes.Repeat([]byte{0xff}, 32), -1824556543},
	}
	for _, tt := range tests {
		if have := memberHash(tt.key); have != tt.want {
			t.Errorf("memberHash(%x) = %d, want %d", tt.key, have, tt.want)
		}
	}
}

func TestEmptyPrivacyGroupIDIsLegacy(t *testing.T) {
	tx := NewPrivateTx(&PrivateTxData{From: testSender, PrivateFrom: testFrom, PrivacyGroupID: []byte{}, PrivateFor: [][]byte{testFor}})
	if _, ok := tx.PrivacyGroupID(); ok {
		t.Fatalf("empty privacy group id reported present")
	}
	if keys, ok := tx.PrivateFor(); !ok || len(keys) != 1 || !bytes.Equal(keys[0], testFor) {
		t.Fatalf("expected legacy addressing, have %x ok=%v", keys, ok)
	}
	enc, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var dec PrivateTransaction
	if err := dec.UnmarshalBinary(enc); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if dec.Hash() != tx.Hash() {
		t.Fatalf("round trip changed the transaction: %s", spew.Sdump(dec.inner))
	}
}

func TestHashMatchesEncoding(t *testing.T) {
	for _, tx := range []*PrivateTransaction{legacyTx(), legacyTx().WithPrivateArgs(nil)} {
		enc, err := tx.MarshalBinary()
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}
		if have, want := tx.Hash(), crypto.Keccak256Hash(enc); have != want || have == (common.Hash{}) {
			t.Fatalf("hash mismatch: have %x want %x", have, want)
		}
	}
}
