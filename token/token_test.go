package token

import (
	"testing"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		tok  Token
		want [2]string
	}{
		{
			name: "identifier key ignores line",
			tok:  Token{Type: Identifier, Lexeme: "counter", Line: 1},
			want: [2]string{"counter", "IDENTIFIER"},
		},
		{
			name: "same lexeme different type is a distinct key",
			tok:  Token{Type: String, Lexeme: "counter", Line: 7},
			want: [2]string{"counter", "STRING"},
		},
		{
			name: "keyword key uses its own Type string",
			tok:  Token{Type: While, Lexeme: "while", Line: 3},
			want: [2]string{"while", "WHILE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tok.Key(); got != tt.want {
				t.Errorf("Key() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyIgnoresLine(t *testing.T) {
	a := Token{Type: Identifier, Lexeme: "a", Line: 1}
	b := Token{Type: Identifier, Lexeme: "a", Line: 99}
	if a.Key() != b.Key() {
		t.Errorf("Key() depends on Line, want it stable across lines: %v != %v", a.Key(), b.Key())
	}
}

func TestString(t *testing.T) {
	tok := Token{Type: Number, Lexeme: "42", Line: 5}
	want := `Token{NUMBER "42", line 5}`
	if got := tok.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
