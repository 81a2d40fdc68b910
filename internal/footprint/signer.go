package footprint

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"fmt"

	"probo/internal/domain"
)

// Signer produces the provenance signatures recorded on a footprint. The
// signatures cover the final hash layer only; they are deliberately outside
// the commitment determinism contract.
//
// The default EphemeralSigner generates fresh keypairs per call, which
// carries no durable identity binding: the signatures prove the footprint
// was produced whole, not who produced it. Deployments that need owner
// authentication swap in a signer backed by long-term keys.
type Signer interface {
	Sign(digest []byte) ([]domain.SignatureRecord, error)
}

// EphemeralSigner signs with two freshly generated keypairs per call:
// Ed25519 and ECDSA P-256, two independent algorithm families so a weakness
// in one does not void both records.
type EphemeralSigner struct{}

func NewEphemeralSigner() *EphemeralSigner {
	return &EphemeralSigner{}
}

func (s *EphemeralSigner) Sign(digest []byte) ([]domain.SignatureRecord, error) {
	edRecord, err := signEd25519(digest)
	if err != nil {
		return nil, err
	}
	ecRecord, err := signECDSA(digest)
	if err != nil {
		return nil, err
	}
	return []domain.SignatureRecord{edRecord, ecRecord}, nil
}

func signEd25519(digest []byte) (domain.SignatureRecord, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return domain.SignatureRecord{}, fmt.Errorf("generate ed25519 key: %w", err)
	}
	sig := ed25519.Sign(priv, digest)
	return domain.SignatureRecord{
		Algorithm: "ed25519",
		PublicKey: hex.EncodeToString(pub),
		Signature: hex.EncodeToString(sig),
	}, nil
}

func signECDSA(digest []byte) (domain.SignatureRecord, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return domain.SignatureRecord{}, fmt.Errorf("generate ecdsa key: %w", err)
	}
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest)
	if err != nil {
		return domain.SignatureRecord{}, fmt.Errorf("sign ecdsa: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return domain.SignatureRecord{}, fmt.Errorf("marshal ecdsa public key: %w", err)
	}
	return domain.SignatureRecord{
		Algorithm: "ecdsa-p256",
		PublicKey: hex.EncodeToString(pub),
		Signature: hex.EncodeToString(sig),
	}, nil
}

// VerifySignatures checks every signature record on a footprint against its
// final hash layer. Used by tests and by external verifiers; the engine never
// needs it on the hot path.
func VerifySignatures(fp *domain.Footprint) error {
	if len(fp.Layers) == 0 {
		return fmt.Errorf("footprint has no hash layers")
	}
	digest, err := hex.DecodeString(fp.Layers[len(fp.Layers)-1].Digest)
	if err != nil {
		return fmt.Errorf("decode final layer digest: %w", err)
	}
	for _, rec := range fp.Signatures {
		if err := verifyRecord(rec, digest); err != nil {
			return fmt.Errorf("%s signature: %w", rec.Algorithm, err)
		}
	}
	return nil
}

func verifyRecord(rec domain.SignatureRecord, digest []byte) error {
	pub, err := hex.DecodeString(rec.PublicKey)
	if err != nil {
		return fmt.Errorf("decode public key: %w", err)
	}
	sig, err := hex.DecodeString(rec.Signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	switch rec.Algorithm {
	case "ed25519":
		if len(pub) != ed25519.PublicKeySize {
			return fmt.Errorf("public key must be %d bytes", ed25519.PublicKeySize)
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
			return fmt.Errorf("verification failed")
		}
	case "ecdsa-p256":
		parsed, err := x509.ParsePKIXPublicKey(pub)
		if err != nil {
			return fmt.Errorf("parse public key: %w", err)
		}
		ecPub, ok := parsed.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("public key is not ECDSA")
		}
		if !ecdsa.VerifyASN1(ecPub, digest, sig) {
			return fmt.Errorf("verification failed")
		}
	default:
		return fmt.Errorf("unknown algorithm %q", rec.Algorithm)
	}
	return nil
}
