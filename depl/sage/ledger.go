package main

import (
	"net/url"

	"golang.org/x/xerrors"

	"github.com/tnc-ca-geo/SAGE/ledger"
	cdbledger "github.com/tnc-ca-geo/SAGE/ledger/cdb"
	memledger "github.com/tnc-ca-geo/SAGE/ledger/memory"
)

// getLedger returns the ledger for ledgerURI along with a function that
// releases it. An empty URI yields a nil ledger.
func getLedger(ledgerURI string) (ledger.Ledger, func(), error) {
	noop := func() {}
	if ledgerURI == "" {
		return nil, noop, nil
	}

	uri, err := url.Parse(ledgerURI)
	if err != nil {
		return nil, noop, xerrors.Errorf("could not parse ledger URI: %w", err)
	}

	switch uri.Scheme {
	case "in-memory":
		logger.Info("using in-memory ledger")
		return memledger.NewInMemoryLedger(), noop, nil
	case "postgresql":
		logger.Info("using CDB ledger")
		led, err := cdbledger.NewCDBLedger(ledgerURI)
		if err != nil {
			return nil, noop, xerrors.Errorf("open ledger: %w", err)
		}
		if err = led.EnsureSchema(); err != nil {
			_ = led.Close()
			return nil, noop, err
		}
		return led, func() { _ = led.Close() }, nil
	default:
		return nil, noop, xerrors.Errorf("unsupported ledger URI scheme: %q", uri.Scheme)
	}
}
