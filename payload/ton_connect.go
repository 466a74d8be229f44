// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/vm/utils/wrappers"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/keys"
)

const (
	TonConnectStandard = "ton_connect"

	tonConnectPrefix = "ton-connect/sign-data/"

	tonTextType   = "text"
	tonBinaryType = "binary"

	tonAddressLen         = 32
	tonFriendlyAddressLen = 36
)

var (
	errTonAddress        = errors.New("invalid TON address")
	errTonChecksum       = errors.New("invalid TON address checksum")
	errTonPayloadType    = errors.New("unsupported TON Connect payload type")
	errNegativeTimestamp = errors.New("negative timestamp")

	_ Signed = (*TonConnect)(nil)
)

func init() {
	mustRegister(TonConnectStandard, decodeAs[TonConnect])
}

// TonAddress is a TON account address: a workchain and a 32 byte account id.
// It is accepted in raw ("0:<hex>") and user-friendly (base64) form and
// marshalled in raw form.
type TonAddress struct {
	Workchain int32
	Account   [tonAddressLen]byte
}

func ParseTonAddress(s string) (TonAddress, error) {
	if wc, account, ok := strings.Cut(s, ":"); ok {
		workchain, err := strconv.ParseInt(wc, 10, 32)
		if err != nil {
			return TonAddress{}, fmt.Errorf("%w: %w", errTonAddress, err)
		}
		b, err := hex.DecodeString(account)
		if err != nil || len(b) != tonAddressLen {
			return TonAddress{}, fmt.Errorf("%w: %q", errTonAddress, s)
		}
		a := TonAddress{Workchain: int32(workchain)}
		copy(a.Account[:], b)
		return a, nil
	}

	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		b, err = base64.StdEncoding.DecodeString(s)
	}
	if err != nil || len(b) != tonFriendlyAddressLen {
		return TonAddress{}, fmt.Errorf("%w: %q", errTonAddress, s)
	}
	if crc16(b[:34]) != binary.BigEndian.Uint16(b[34:]) {
		return TonAddress{}, errTonChecksum
	}
	a := TonAddress{Workchain: int32(int8(b[1]))}
	copy(a.Account[:], b[2:34])
	return a, nil
}

func (a TonAddress) String() string {
	return strconv.FormatInt(int64(a.Workchain), 10) + ":" + hex.EncodeToString(a.Account[:])
}

func (a TonAddress) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *TonAddress) UnmarshalText(text []byte) error {
	v, err := ParseTonAddress(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// crc16 is CRC-16/XMODEM, the checksum of user-friendly TON addresses.
func crc16(b []byte) uint16 {
	var crc uint16
	for _, c := range b {
		crc ^= uint16(c) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// TonTimestamp is a signing time given either as unix seconds or as an
// RFC3339 string.
type TonTimestamp struct {
	time.Time
}

func (t TonTimestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Unix())
}

func (t *TonTimestamp) UnmarshalJSON(b []byte) error {
	var seconds int64
	if err := json.Unmarshal(b, &seconds); err == nil {
		t.Time = time.Unix(seconds, 0).UTC()
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	t.Time = v.UTC()
	return nil
}

// TonConnectPayload is the data the wallet was asked to sign. Only the text
// and binary schemas are supported.
type TonConnectPayload struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Bytes []byte `json:"bytes,omitempty"`
}

func (p *TonConnectPayload) data() (string, []byte, error) {
	switch p.Type {
	case tonTextType:
		return "txt", []byte(p.Text), nil
	case tonBinaryType:
		return "bin", p.Bytes, nil
	default:
		return "", nil, fmt.Errorf("%w: %q", errTonPayloadType, p.Type)
	}
}

// TonConnect is a TON Connect signData message.
type TonConnect struct {
	Address   TonAddress        `json:"address"`
	Domain    string            `json:"domain"`
	Timestamp TonTimestamp      `json:"timestamp"`
	Payload   TonConnectPayload `json:"payload"`
	PublicKey keys.PublicKey    `json:"public_key"`
	Signature Signature         `json:"signature"`
}

func (*TonConnect) Standard() string {
	return TonConnectStandard
}

// Hash returns the zero ID if the payload can not be encoded. Verify reports
// that case as MalformedPayload.
func (t *TonConnect) Hash() ids.ID {
	b, err := t.bytes()
	if err != nil {
		return ids.Empty
	}
	return sha256ID(b)
}

// bytes returns
// 0xffff ‖ prefix ‖ workchain ‖ address ‖ len(domain) ‖ domain ‖ timestamp ‖
// type ‖ len(data) ‖ data, with every integer big endian.
func (t *TonConnect) bytes() ([]byte, error) {
	if t.Timestamp.Unix() < 0 {
		return nil, errNegativeTimestamp
	}
	kind, data, err := t.Payload.data()
	if err != nil {
		return nil, err
	}

	size := wrappers.ShortLen + len(tonConnectPrefix) + wrappers.IntLen + tonAddressLen +
		wrappers.IntLen + len(t.Domain) + wrappers.LongLen + len(kind) + wrappers.IntLen + len(data)
	p := wrappers.Packer{
		Bytes: make([]byte, size),
	}
	p.PackShort(0xffff)
	p.PackFixedBytes([]byte(tonConnectPrefix))
	p.PackInt(uint32(t.Address.Workchain))
	p.PackFixedBytes(t.Address.Account[:])
	p.PackInt(uint32(len(t.Domain)))
	p.PackFixedBytes([]byte(t.Domain))
	p.PackLong(uint64(t.Timestamp.Unix()))
	p.PackFixedBytes([]byte(kind))
	p.PackInt(uint32(len(data)))
	p.PackFixedBytes(data)
	return p.Bytes, nil
}

func (t *TonConnect) Message() []byte {
	if t.Payload.Type == tonBinaryType {
		return t.Payload.Bytes
	}
	return []byte(t.Payload.Text)
}

func (t *TonConnect) Verify() (keys.PublicKey, error) {
	b, err := t.bytes()
	if err != nil {
		return keys.PublicKey{}, intents.ErrMalformedPayload.Withf("%s", err)
	}
	h := sha256ID(b)
	return verifyEd25519(t.PublicKey, t.Signature, h[:])
}
