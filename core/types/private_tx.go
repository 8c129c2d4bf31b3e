package types

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	ErrInvalidPrivacyAddressing = errors.New("private tx: invalid privacy group addressing")
	ErrInvalidRestriction       = errors.New("private tx: invalid restriction")
	ErrInvalidRecipient         = errors.New("private tx: invalid recipient address")
)

// Restriction tells the network whether the payload is distributed only to
// the privacy group members.
type Restriction string

const (
	Restricted   Restriction = "restricted"
	Unrestricted Restriction = "unrestricted"
)

func (r Restriction) valid() bool {
	return r == Restricted || r == Unrestricted
}

// PrivateTxData is the literal form of a private transaction. It is only used
// to build a PrivateTransaction through NewPrivateTx, which takes a deep copy.
type PrivateTxData struct {
	ChainID  *big.Int
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *common.Address // nil means contract creation
	Value    *big.Int
	Data     []byte

	From common.Address

	V *big.Int
	R *big.Int
	S *big.Int

	PrivateFrom    []byte
	PrivacyGroupID []byte   // grouped addressing, legacy when empty
	PrivateFor     [][]byte // legacy addressing, only used when PrivacyGroupID is empty
	Restriction    Restriction

	ExtendedPrivacy *byte  // nil when the tx does not use extended privacy
	PrivateArgs     []byte // nil when absent
}

// PrivateTransaction is an immutable private transaction. Accessors return
// copies, optional fields are reported as (value, ok).
type PrivateTransaction struct {
	inner PrivateTxData
}

// NewPrivateTx creates a private transaction from a deep copy of data.
func NewPrivateTx(data *PrivateTxData) *PrivateTransaction {
	return &PrivateTransaction{inner: data.copy()}
}

func (d *PrivateTxData) copy() PrivateTxData {
	cpy := PrivateTxData{
		ChainID:        copyBig(d.ChainID),
		Nonce:          d.Nonce,
		GasPrice:       copyBig(d.GasPrice),
		Gas:            d.Gas,
		To:             copyAddressPtr(d.To),
		Value:          copyBig(d.Value),
		Data:           common.CopyBytes(d.Data),
		From:           d.From,
		V:              copyBig(d.V),
		R:              copyBig(d.R),
		S:              copyBig(d.S),
		PrivateFrom:    common.CopyBytes(d.PrivateFrom),
		Restriction:    d.Restriction,
		PrivateArgs:    common.CopyBytes(d.PrivateArgs),
	}
	if cpy.Restriction == "" {
		cpy.Restriction = Restricted
	}
	if len(d.PrivacyGroupID) > 0 {
		cpy.PrivacyGroupID = common.CopyBytes(d.PrivacyGroupID)
	} else {
		cpy.PrivateFor = copyKeys(d.PrivateFor)
	}
	if d.ExtendedPrivacy != nil {
		marker := *d.ExtendedPrivacy
		cpy.ExtendedPrivacy = &marker
	}
	return cpy
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

func copyAddressPtr(a *common.Address) *common.Address {
	if a == nil {
		return nil
	}
	cpy := *a
	return &cpy
}

func copyKeys(keys [][]byte) [][]byte {
	cpy := make([][]byte, len(keys))
	for i, k := range keys {
		cpy[i] = common.CopyBytes(k)
	}
	return cpy
}

func (tx *PrivateTransaction) ChainID() *big.Int      { return copyBig(tx.inner.ChainID) }
func (tx *PrivateTransaction) Nonce() uint64          { return tx.inner.Nonce }
func (tx *PrivateTransaction) GasPrice() *big.Int     { return copyBig(tx.inner.GasPrice) }
func (tx *PrivateTransaction) Gas() uint64            { return tx.inner.Gas }
func (tx *PrivateTransaction) To() *common.Address    { return copyAddressPtr(tx.inner.To) }
func (tx *PrivateTransaction) Value() *big.Int        { return copyBig(tx.inner.Value) }
func (tx *PrivateTransaction) Data() []byte           { return common.CopyBytes(tx.inner.Data) }
func (tx *PrivateTransaction) Sender() common.Address { return tx.inner.From }
func (tx *PrivateTransaction) PrivateFrom() []byte    { return common.CopyBytes(tx.inner.PrivateFrom) }
func (tx *PrivateTransaction) Restriction() Restriction {
	return tx.inner.Restriction
}

// RawSignatureValues returns the V, R, S signature values of the transaction.
func (tx *PrivateTransaction) RawSignatureValues() (v, r, s *big.Int) {
	return copyBig(tx.inner.V), copyBig(tx.inner.R), copyBig(tx.inner.S)
}

// IsContractCreation reports whether the transaction has no recipient.
func (tx *PrivateTransaction) IsContractCreation() bool {
	return tx.inner.To == nil
}

// PrivacyGroupID returns the explicit privacy group id of a grouped transaction.
func (tx *PrivateTransaction) PrivacyGroupID() ([]byte, bool) {
	if tx.inner.PrivacyGroupID == nil {
		return nil, false
	}
	return common.CopyBytes(tx.inner.PrivacyGroupID), true
}

// PrivateFor returns the recipient keys of a legacy transaction. The list is
// reported present (and possibly empty) for every legacy transaction.
func (tx *PrivateTransaction) PrivateFor() ([][]byte, bool) {
	if tx.inner.PrivacyGroupID != nil {
		return nil, false
	}
	return copyKeys(tx.inner.PrivateFor), true
}

// ExtendedPrivacy returns the extended privacy marker, if any.
func (tx *PrivateTransaction) ExtendedPrivacy() (byte, bool) {
	if tx.inner.ExtendedPrivacy == nil {
		return 0, false
	}
	return *tx.inner.ExtendedPrivacy, true
}

// HasExtendedPrivacy reports whether the extended privacy marker is present.
func (tx *PrivateTransaction) HasExtendedPrivacy() bool {
	return tx.inner.ExtendedPrivacy != nil
}

// PrivateArgs returns the private arguments blob, if any.
func (tx *PrivateTransaction) PrivateArgs() ([]byte, bool) {
	if tx.inner.PrivateArgs == nil {
		return nil, false
	}
	return common.CopyBytes(tx.inner.PrivateArgs), true
}

// WithPrivateArgs returns a copy of tx whose private arguments are replaced
// by args. Every other field is carried over unchanged.
func (tx *PrivateTransaction) WithPrivateArgs(args []byte) *PrivateTransaction {
	cpy := tx.inner.copy()
	cpy.PrivateArgs = common.CopyBytes(args)
	if cpy.PrivateArgs == nil {
		cpy.PrivateArgs = []byte{}
	}
	return &PrivateTransaction{inner: cpy}
}

// DeterminePrivacyGroupID returns the explicit privacy group id or, for legacy
// addressing, the group id derived from the participant keys.
func (tx *PrivateTransaction) DeterminePrivacyGroupID() []byte {
	if id, ok := tx.PrivacyGroupID(); ok {
		return id
	}
	return LegacyPrivacyGroupID(tx.inner.PrivateFrom, tx.inner.PrivateFor)
}

// LegacyPrivacyGroupID computes the id of the implicit group formed by
// privateFrom and privateFor: keccak256 of the RLP list of the distinct keys,
// ordered by memberHash. Keys with equal hashes keep their first-seen order.
func LegacyPrivacyGroupID(privateFrom []byte, privateFor [][]byte) []byte {
	distinct := make([][]byte, 0, len(privateFor)+1)
	for _, k := range append([][]byte{privateFrom}, privateFor...) {
		seen := false
		for _, d := range distinct {
			if bytes.Equal(k, d) {
				seen = true
				break
			}
		}
		if !seen {
			distinct = append(distinct, k)
		}
	}
	sort.SliceStable(distinct, func(i, j int) bool { return memberHash(distinct[i]) < memberHash(distinct[j]) })

	enc, err := rlp.EncodeToBytes(distinct)
	if err != nil {
		panic(fmt.Sprintf("can't encode privacy group members: %v", err))
	}
	return crypto.Keccak256(enc)
}

// memberHash is the 31-multiplier polynomial hash over the signed key bytes,
// in wrapping 32-bit arithmetic. Enclaves order legacy group members by it.
func memberHash(key []byte) int32 {
	h := int32(1)
	for _, b := range key {
		h = 31*h + int32(int8(b))
	}
	return h
}

// Hash returns the keccak256 hash of the canonical encoding.
func (tx *PrivateTransaction) Hash() common.Hash {
	enc, err := tx.MarshalBinary()
	if err != nil {
		panic(fmt.Sprintf("can't encode private transaction: %v", err))
	}
	return crypto.Keccak256Hash(enc)
}

// EncodeRLP implements rlp.Encoder.
func (tx *PrivateTransaction) EncodeRLP(w io.Writer) error {
	d := &tx.inner
	buf := rlp.NewEncoderBuffer(w)
	l := buf.List()
	buf.WriteBigInt(d.ChainID)
	buf.WriteUint64(d.Nonce)
	buf.WriteBigInt(d.GasPrice)
	buf.WriteUint64(d.Gas)
	if d.To == nil {
		buf.WriteBytes(nil)
	} else {
		buf.WriteBytes(d.To.Bytes())
	}
	buf.WriteBigInt(d.Value)
	buf.WriteBytes(d.Data)
	buf.WriteBytes(d.From.Bytes())
	buf.WriteBigInt(d.V)
	buf.WriteBigInt(d.R)
	buf.WriteBigInt(d.S)
	buf.WriteBytes(d.PrivateFrom)
	if d.PrivacyGroupID != nil {
		buf.WriteBytes(d.PrivacyGroupID)
	} else {
		keys := buf.List()
		for _, k := range d.PrivateFor {
			buf.WriteBytes(k)
		}
		buf.ListEnd(keys)
	}
	buf.WriteString(string(d.Restriction))
	if d.ExtendedPrivacy != nil || d.PrivateArgs != nil {
		if d.ExtendedPrivacy != nil {
			buf.WriteBytes([]byte{*d.ExtendedPrivacy})
		} else {
			buf.WriteBytes(nil)
		}
	}
	if d.PrivateArgs != nil {
		buf.WriteBytes(d.PrivateArgs)
	}
	buf.ListEnd(l)
	return buf.Flush()
}

// DecodeRLP implements rlp.Decoder.
func (tx *PrivateTransaction) DecodeRLP(s *rlp.Stream) error {
	var (
		d   PrivateTxData
		err error
	)
	if _, err = s.List(); err != nil {
		return err
	}
	if d.ChainID, err = s.BigInt(); err != nil {
		return err
	}
	if d.Nonce, err = s.Uint64(); err != nil {
		return err
	}
	if d.GasPrice, err = s.BigInt(); err != nil {
		return err
	}
	if d.Gas, err = s.Uint64(); err != nil {
		return err
	}
	to, err := s.Bytes()
	if err != nil {
		return err
	}
	switch len(to) {
	case 0:
	case common.AddressLength:
		addr := common.BytesToAddress(to)
		d.To = &addr
	default:
		return fmt.Errorf("%w: length %d", ErrInvalidRecipient, len(to))
	}
	if d.Value, err = s.BigInt(); err != nil {
		return err
	}
	if d.Data, err = s.Bytes(); err != nil {
		return err
	}
	from, err := s.Bytes()
	if err != nil {
		return err
	}
	if len(from) != common.AddressLength {
		return fmt.Errorf("private tx: invalid sender length %d", len(from))
	}
	d.From = common.BytesToAddress(from)
	if d.V, err = s.BigInt(); err != nil {
		return err
	}
	if d.R, err = s.BigInt(); err != nil {
		return err
	}
	if d.S, err = s.BigInt(); err != nil {
		return err
	}
	if d.PrivateFrom, err = s.Bytes(); err != nil {
		return err
	}
	if err := decodeAddressing(s, &d); err != nil {
		return err
	}
	restriction, err := s.Bytes()
	if err != nil {
		return err
	}
	d.Restriction = Restriction(restriction)
	if !d.Restriction.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRestriction, restriction)
	}
	marker, err := s.Bytes()
	switch {
	case err == rlp.EOL:
		tx.inner = d
		return s.ListEnd()
	case err != nil:
		return err
	case len(marker) == 1:
		d.ExtendedPrivacy = &marker[0]
	case len(marker) > 1:
		return fmt.Errorf("private tx: extended privacy marker too long (%d bytes)", len(marker))
	}
	args, err := s.Bytes()
	switch {
	case err == rlp.EOL:
	case err != nil:
		return err
	default:
		d.PrivateArgs = args
	}
	tx.inner = d
	return s.ListEnd()
}

func decodeAddressing(s *rlp.Stream, d *PrivateTxData) error {
	kind, _, err := s.Kind()
	if err != nil {
		return err
	}
	if kind != rlp.List {
		id, err := s.Bytes()
		if err != nil {
			return err
		}
		if len(id) == 0 {
			return fmt.Errorf("%w: empty privacy group id", ErrInvalidPrivacyAddressing)
		}
		d.PrivacyGroupID = id
		return nil
	}
	if _, err := s.List(); err != nil {
		return err
	}
	d.PrivateFor = [][]byte{}
	for {
		key, err := s.Bytes()
		if err == rlp.EOL {
			break
		}
		if err != nil {
			return err
		}
		d.PrivateFor = append(d.PrivateFor, key)
	}
	return s.ListEnd()
}

// MarshalBinary returns the canonical RLP encoding of the transaction.
func (tx *PrivateTransaction) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(tx)
}

// UnmarshalBinary decodes the canonical RLP encoding of a transaction.
func (tx *PrivateTransaction) UnmarshalBinary(b []byte) error {
	var dec PrivateTransaction
	if err := rlp.DecodeBytes(b, &dec); err != nil {
		return err
	}
	tx.inner = dec.inner
	return nil
}
