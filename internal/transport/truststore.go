package transport

// truststore.go loads the bundled pinned certificate. Absence of the
// configured certificate resource is a configuration error surfaced at
// transport construction time; the connection path never runs without a
// loaded pin.

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// CertStore supplies pinned certificate bytes by name.
type CertStore interface {
	// PinnedCertificate returns the DER bytes of the named certificate.
	// A missing certificate is an error, never an empty result.
	PinnedCertificate(name string) ([]byte, error)
}

// DirCertStore loads certificates from files in a directory. Both PEM
// ("<name>.pem") and raw DER ("<name>.cer") files are accepted.
type DirCertStore struct {
	dir string
}

// NewDirCertStore returns a store reading from dir.
func NewDirCertStore(dir string) *DirCertStore {
	return &DirCertStore{dir: dir}
}

func (s *DirCertStore) PinnedCertificate(name string) ([]byte, error) {
	for _, candidate := range []string{name + ".pem", name + ".cer", name} {
		path := filepath.Join(s.dir, candidate)

		raw, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read pinned certificate %s: %w", path, err)
		}
		return derBytes(raw, path)
	}
	return nil, fmt.Errorf("pinned certificate %q not found in %s", name, s.dir)
}

// derBytes normalizes PEM or DER file content to validated DER.
func derBytes(raw []byte, path string) ([]byte, error) {
	der := raw
	if block, _ := pem.Decode(raw); block != nil {
		if block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("%s holds a %q PEM block, expected CERTIFICATE", path, block.Type)
		}
		der = block.Bytes
	}

	if _, err := x509.ParseCertificate(der); err != nil {
		return nil, fmt.Errorf("%s is not a valid certificate: %w", path, err)
	}
	return der, nil
}
