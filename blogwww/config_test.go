// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/decred/slog"
)

func TestParseAndSetDebugLevels(t *testing.T) {
	defer setLogLevels("off")

	var tests = []struct {
		name      string
		debug     string
		wantErr   bool
		wantLevel slog.Level // Level of the BLOG subsystem
	}{
		{"global level", "info", false, slog.LevelInfo},
		{"subsystem pairs", "BWWW=debug,BLOG=trace", false, slog.LevelTrace},
		{"invalid level", "loud", true, slog.LevelOff},
		{"invalid pair", "BLOG", true, slog.LevelOff},
		{"missing separator", "BWWW=info,BLOG", true, slog.LevelOff},
		{"unknown subsystem", "NOPE=info", true, slog.LevelOff},
		{"invalid subsystem level", "BLOG=loud", true, slog.LevelOff},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setLogLevels("off")

			err := parseAndSetDebugLevels(tc.debug)
			switch {
			case tc.wantErr && err == nil:
				t.Fatalf("got nil error, want error")
			case !tc.wantErr && err != nil:
				t.Fatalf("got error %v, want nil", err)
			}

			// Invalid settings must not change any level
			got := subsystemLoggers["BLOG"].Level()
			if got != tc.wantLevel {
				t.Errorf("got BLOG level %v, want %v", got,
					tc.wantLevel)
			}
		})
	}
}

func TestCheckContactAddress(t *testing.T) {
	var tests = []struct {
		name    string
		cfg     config
		want    string
		wantErr bool
	}{
		{
			"mail disabled",
			config{MailHost: defaultMailHost},
			"",
			false,
		},
		{
			"defaults to the mail user",
			config{
				MailHost: defaultMailHost,
				MailUser: "blog@example.org",
				MailPass: "pass",
			},
			"blog@example.org",
			false,
		},
		{
			"explicit address",
			config{ContactAddress: "owner@example.org"},
			"owner@example.org",
			false,
		},
		{
			"invalid address",
			config{ContactAddress: "owner.example.org"},
			"owner.example.org",
			true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			err := checkContactAddress(&cfg)
			switch {
			case tc.wantErr && err == nil:
				t.Fatalf("got nil error, want error")
			case !tc.wantErr && err != nil:
				t.Fatalf("got error %v, want nil", err)
			}
			if cfg.ContactAddress != tc.want {
				t.Errorf("got contact address %q, want %q",
					cfg.ContactAddress, tc.want)
			}
		})
	}
}

func TestCheckSessionPrune(t *testing.T) {
	var tests = []struct {
		spec    string
		wantErr bool
	}{
		{"", false},
		{defaultSessionPrune, false},
		{"0 30 * * * *", false},
		{"every hour", true},
		{"@sometimes", true},
	}
	for _, tc := range tests {
		t.Run(tc.spec, func(t *testing.T) {
			err := checkSessionPrune(tc.spec)
			if (err != nil) != tc.wantErr {
				t.Errorf("got error %v, want error %v", err,
					tc.wantErr)
			}
		})
	}
}
