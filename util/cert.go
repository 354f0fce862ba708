// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"crypto/elliptic"
	"fmt"
	"os"
	"time"

	"github.com/decred/dcrd/certgen"
)

// certValidity is how long a generated certificate is valid for.
const certValidity = 10 * 365 * 24 * time.Hour

// GenCertPair generates a self-signed P-256 certificate for the organization
// and writes it along with its private key to the provided files. The hosts
// are added to the certificate on top of localhost and the machine hostname.
// No file is left behind on failure.
func GenCertPair(org string, hosts []string, certFile, keyFile string) error {
	cert, key, err := certgen.NewTLSCertPair(elliptic.P256(), org,
		time.Now().Add(certValidity), hosts)
	if err != nil {
		return fmt.Errorf("NewTLSCertPair: %v", err)
	}

	err = os.WriteFile(certFile, cert, 0644)
	if err != nil {
		return err
	}
	err = os.WriteFile(keyFile, key, 0600)
	if err != nil {
		os.Remove(certFile)
		return err
	}
	return nil
}
