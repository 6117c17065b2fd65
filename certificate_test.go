package rtcgate

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func generateTestCertDER(t *testing.T) (certDER, keyDER []byte) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "rtcgate-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}

	certDER, err = x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	require.NoError(t, err)

	keyDER, err = x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)

	return certDER, keyDER
}

func TestFingerprintIsStableAndColonSeparated(t *testing.T) {
	certDER, _ := generateTestCertDER(t)

	fp := Fingerprint(certDER)
	require.Len(t, fp, 32*3-1)
	require.Equal(t, fp, Fingerprint(certDER))
}

func TestNewCertificateRejectsEmptyInputs(t *testing.T) {
	certDER, keyDER := generateTestCertDER(t)

	_, err := NewCertificate(nil, keyDER)
	require.Error(t, err)

	_, err = NewCertificate(certDER, nil)
	require.Error(t, err)
}

func TestNewCertificateComputesFingerprint(t *testing.T) {
	certDER, keyDER := generateTestCertDER(t)

	cert, err := NewCertificate(certDER, keyDER)
	require.NoError(t, err)
	require.Equal(t, Fingerprint(certDER), cert.FingerprintString())
}
