package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := rootCmd()
	for _, path := range [][]string{
		{"migrate"},
		{"scan"},
		{"credits", "balance"},
		{"credits", "topup"},
		{"token", "issue"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil {
			t.Errorf("Find(%v): %v", path, err)
			continue
		}
		if cmd.Name() != path[len(path)-1] {
			t.Errorf("Find(%v) = %s", path, cmd.Name())
		}
	}
}

func TestTokenIssue_RejectsBadFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown role", args: []string{"token", "issue", "--subject", "a@b.be", "--role", "root"}, wantErr: "role must be"},
		{name: "owner without tenant", args: []string{"token", "issue", "--subject", "a@b.be"}, wantErr: "owner tokens need --tenant"},
		{name: "missing subject", args: []string{"token", "issue", "--role", "admin"}, wantErr: "subject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := rootCmd()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetErr(&out)
			root.SetArgs(tt.args)

			err := root.Execute()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
