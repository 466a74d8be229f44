// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package payload_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/intents"
	"github.com/luxfi/intents/intent"
	"github.com/luxfi/intents/intentstest"
	"github.com/luxfi/intents/payload"
)

func testPayload(signer intents.AccountID) *intent.Payload {
	var nonce intents.Nonce
	nonce[31] = 7
	return &intent.Payload{
		SignerID:          signer,
		VerifyingContract: "intents.near",
		Deadline:          intents.NewDeadline(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)),
		Nonce:             nonce,
	}
}

func TestStandards(t *testing.T) {
	require.Equal(t, []string{
		payload.BLSStandard,
		payload.Erc191Standard,
		payload.Nep413Standard,
		payload.RawEd25519Standard,
		payload.Sep53Standard,
		payload.Tip191Standard,
		payload.TonConnectStandard,
	}, payload.Standards())
}

func TestRegisterDuplicate(t *testing.T) {
	err := payload.Register(payload.Nep413Standard, func([]byte) (payload.Signed, error) {
		return nil, nil
	})
	require.Error(t, err)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	for _, signer := range intentstest.Signers(t) {
		t.Run(signer.Standard(), func(t *testing.T) {
			require := require.New(t)

			p := testPayload("alice.near")
			signed := signer.Sign(t, p)

			b, err := json.Marshal(signed)
			require.NoError(err)

			var decoded payload.MultiPayload
			require.NoError(json.Unmarshal(b, &decoded))
			require.Equal(signer.Standard(), decoded.Standard())
			require.Equal(signed.Hash(), decoded.Hash())

			pk, err := decoded.Verify()
			require.NoError(err)
			require.Equal(signer.PublicKey(), pk)

			body, err := intent.Decode(decoded.Message())
			require.NoError(err)
			require.Equal(p.SignerID, body.SignerID)
			require.Equal(p.Nonce, body.Nonce)
		})
	}
}

// Flipping a single bit of the message must never verify as the original
// key.
func TestTamperedMessage(t *testing.T) {
	for _, signer := range intentstest.Signers(t) {
		t.Run(signer.Standard(), func(t *testing.T) {
			require := require.New(t)

			signed := signer.Sign(t, testPayload("alice.near"))
			b, err := json.Marshal(signed)
			require.NoError(err)

			fields := map[string]any{}
			require.NoError(json.Unmarshal(b, &fields))
			switch body := fields["payload"].(type) {
			case string:
				fields["payload"] = flipLastByte(body)
			case map[string]any:
				for _, key := range []string{"message", "text"} {
					if s, ok := body[key].(string); ok {
						body[key] = flipLastByte(s)
					}
				}
			default:
				require.FailNow("unexpected payload shape")
			}
			b, err = json.Marshal(fields)
			require.NoError(err)

			tampered, err := payload.Decode(b)
			require.NoError(err)
			require.NotEqual(signed.Hash(), tampered.Hash())

			pk, err := tampered.Verify()
			if err == nil {
				require.NotEqual(signer.PublicKey(), pk)
				return
			}
			require.ErrorIs(err, intents.ErrInvalidSignature)
		})
	}
}

func flipLastByte(s string) string {
	b := []byte(s)
	b[len(b)-1] ^= 1
	return string(b)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr error
	}{
		{
			name:    "not json",
			json:    `[`,
			wantErr: intents.ErrMalformedPayload,
		},
		{
			name:    "missing standard",
			json:    `{"payload":"x"}`,
			wantErr: intents.ErrMalformedPayload,
		},
		{
			name:    "unknown standard",
			json:    `{"standard":"webauthn","payload":"x"}`,
			wantErr: intents.ErrUnsupportedStandard,
		},
		{
			name:    "short signature",
			json:    `{"standard":"erc191","payload":"x","signature":"secp256k1:3yZe7d"}`,
			wantErr: intents.ErrMalformedPayload,
		},
		{
			name:    "unknown curve",
			json:    `{"standard":"raw_ed25519","payload":"x","public_key":"rsa:3yZe7d","signature":"rsa:3yZe7d"}`,
			wantErr: intents.ErrMalformedPayload,
		},
		{
			name:    "bad ton address",
			json:    `{"standard":"ton_connect","address":"0:zz","domain":"d","timestamp":1,"payload":{"type":"text"}}`,
			wantErr: intents.ErrMalformedPayload,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := payload.Decode([]byte(tt.json))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWrongCurve(t *testing.T) {
	require := require.New(t)

	ed := intentstest.NewSigner(t, payload.RawEd25519Standard)
	secp := intentstest.NewSigner(t, payload.Erc191Standard)

	signed := ed.Sign(t, testPayload("alice.near")).Signed.(*payload.RawEd25519)
	signed.PublicKey = secp.PublicKey()

	_, err := signed.Verify()
	require.ErrorIs(err, intents.ErrMalformedPayload)
}

func TestErc191AcceptsBothRecoveryForms(t *testing.T) {
	require := require.New(t)

	signer := intentstest.NewSigner(t, payload.Erc191Standard)
	signed := signer.Sign(t, testPayload("alice.near")).Signed.(*payload.Erc191)

	v := signed.Signature.Bytes[payload.Secp256k1SignatureLen-1]
	require.LessOrEqual(v, byte(1))

	signed.Signature.Bytes[payload.Secp256k1SignatureLen-1] = v + 27
	pk, err := signed.Verify()
	require.NoError(err)
	require.Equal(signer.PublicKey(), pk)

	signed.Signature.Bytes[payload.Secp256k1SignatureLen-1] = 5
	_, err = signed.Verify()
	require.ErrorIs(err, intents.ErrInvalidSignature)
}

func TestErc191AndTip191Differ(t *testing.T) {
	require := require.New(t)

	erc := &payload.Erc191{Payload: "hello"}
	tip := &payload.Tip191{Payload: "hello"}
	require.NotEqual(erc.Hash(), tip.Hash())
}

func TestNep413Envelope(t *testing.T) {
	require := require.New(t)

	signer := intentstest.NewSigner(t, payload.Nep413Standard)
	p := testPayload("alice.near")
	signed := signer.Sign(t, p).Signed

	envelope, ok := signed.(payload.Envelope)
	require.True(ok)
	require.Equal(p.Nonce, envelope.EnvelopeNonce())
	require.Equal(p.VerifyingContract, envelope.EnvelopeRecipient())

	// the nonce is part of the signed envelope
	nep := signed.(*payload.Nep413)
	nep.Payload.Nonce[0] ^= 1
	_, err := nep.Verify()
	require.ErrorIs(err, intents.ErrInvalidSignature)
}

func TestTonConnectCellUnsupported(t *testing.T) {
	require := require.New(t)

	const raw = `{"standard":"ton_connect","address":"0:f4809e5ffac9dc42a6b1d94c5e74ad5fd86378de675c805f2274d0055cbc9378","domain":"d","timestamp":1,"payload":{"type":"cell"}}`
	signed, err := payload.Decode([]byte(raw))
	require.NoError(err)
	_, err = signed.Verify()
	require.ErrorIs(err, intents.ErrMalformedPayload)
}

func TestParseTonAddress(t *testing.T) {
	require := require.New(t)

	const raw = "0:f4809e5ffac9dc42a6b1d94c5e74ad5fd86378de675c805f2274d0055cbc9378"

	a, err := payload.ParseTonAddress(raw)
	require.NoError(err)
	require.Equal(int32(0), a.Workchain)
	require.Equal(raw, a.String())

	friendly, err := payload.ParseTonAddress("EQD0gJ5f-sncQqax2UxedK1f2GN43mdcgF8idNAFXLyTeDDr")
	require.NoError(err)
	require.Equal(a, friendly)

	_, err = payload.ParseTonAddress("EQD0gJ5f-sncQqax2UxedK1f2GN43mdcgF8idNAFXLyTeDDs")
	require.Error(err)

	masterchain, err := payload.ParseTonAddress("-1:" + raw[2:])
	require.NoError(err)
	require.Equal(int32(-1), masterchain.Workchain)
}

func TestTonTimestamp(t *testing.T) {
	require := require.New(t)

	var fromSeconds, fromString payload.TonTimestamp
	require.NoError(json.Unmarshal([]byte(`1747759882`), &fromSeconds))
	require.NoError(json.Unmarshal([]byte(`"2025-05-20T16:51:22Z"`), &fromString))
	require.True(fromSeconds.Equal(fromString.Time))
}

func TestSignatureText(t *testing.T) {
	require := require.New(t)

	_, err := payload.ParseSignature("ed25519")
	require.Error(err)
	_, err = payload.ParseSignature("ed25519:3yZe7d")
	require.Error(err)
}
