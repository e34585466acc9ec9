package lexer

import "testing"

func scanAll(t *testing.T, source string) []Token {
	t.Helper()
	l := New(source)
	var toks []Token
	for {
		tok, err := l.Advance()
		if err != nil {
			t.Fatalf("unexpected scan error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks
		}
	}
}

func TestTwoCharOperators(t *testing.T) {
	toks := scanAll(t, "!= == <= >=")
	want := []Type{BangEqual, EqualEqual, LessEqual, GreaterEqual, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, w)
		}
	}
}

func TestKeywordsVsIdentifiers(t *testing.T) {
	toks := scanAll(t, "var orbit and")
	if toks[0].Type != Var {
		t.Errorf("want VAR, got %s", toks[0].Type)
	}
	if toks[1].Type != Identifier || toks[1].Lexeme != "orbit" {
		t.Errorf("want IDENTIFIER orbit, got %s %q", toks[1].Type, toks[1].Lexeme)
	}
	if toks[2].Type != And {
		t.Errorf("want AND, got %s", toks[2].Type)
	}
}

func TestNumberRejectsTrailingDot(t *testing.T) {
	l := New("1.")
	if _, err := l.Advance(); err == nil {
		t.Fatal("expected error for trailing '.' in number literal")
	}
}

func TestStringLiteral(t *testing.T) {
	toks := scanAll(t, `"hello world"`)
	if toks[0].Type != String || toks[0].Literal != "hello world" {
		t.Errorf("got %+v", toks[0])
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"unterminated`)
	if _, err := l.Advance(); err == nil {
		t.Fatal("expected unterminated string error")
	}
}

func TestNestedBlockComment(t *testing.T) {
	toks := scanAll(t, "1 /* outer /* inner */ still outer */ 2")
	if toks[0].Type != Number || toks[0].Lexeme != "1" {
		t.Fatalf("got %+v", toks[0])
	}
	if toks[1].Type != Number || toks[1].Lexeme != "2" {
		t.Fatalf("got %+v", toks[1])
	}
}

func TestEOFForever(t *testing.T) {
	l := New("")
	for i := 0; i < 3; i++ {
		tok, err := l.Advance()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok.Type != EOF {
			t.Fatalf("expected EOF repeatedly, got %s", tok.Type)
		}
	}
}

func TestLineTracking(t *testing.T) {
	toks := scanAll(t, "1\n2\n\n3")
	if toks[0].Line != 1 || toks[1].Line != 2 || toks[2].Line != 4 {
		t.Fatalf("line numbers wrong: %d %d %d", toks[0].Line, toks[1].Line, toks[2].Line)
	}
}
