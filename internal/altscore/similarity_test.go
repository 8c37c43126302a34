package altscore

import (
	"math"
	"testing"
)

// TestRatio は類似度比の計算を検証する。
func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "両方空文字列", a: "", b: "", want: 1.0},
		{name: "片方のみ空文字列", a: "abc", b: "", want: 0.0},
		{name: "完全一致", a: "abc", b: "abc", want: 1.0},
		{name: "部分一致", a: "abcd", b: "bcde", want: 0.75},
		{name: "一致なし", a: "abc", b: "xyz", want: 0.0},
		{name: "大文字小文字は区別される", a: "ABC", b: "abc", want: 0.0},
		// こん(2) + は(1) の3runeが一致する
		{name: "マルチバイト文字", a: "こんにちは", b: "こんばんは", want: 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ratio(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

// TestRatio_Symmetry は引数順に依存しないことを検証する。
func TestRatio_Symmetry(t *testing.T) {
	pairs := [][2]string{
		{"cooldude42", "cooldude43"},
		{"abcd", "bcde"},
		{"player_one", "playerone2"},
	}
	for _, pair := range pairs {
		forward := Ratio(pair[0], pair[1])
		backward := Ratio(pair[1], pair[0])
		if math.Abs(forward-backward) > 1e-9 {
			t.Errorf("Ratio(%q, %q) = %v, Ratio(%q, %q) = %v, want equal",
				pair[0], pair[1], forward, pair[1], pair[0], backward)
		}
	}
}

// TestBaseUsername はベースユーザー名の正規化を検証する。
func TestBaseUsername(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "CoolDude42", want: "cooldude"},
		{input: "cool_dude-42", want: "cooldude"},
		{input: "12345", want: ""},
		{input: "abc", want: "abc"},
	}

	for _, tt := range tests {
		if got := baseUsername(tt.input); got != tt.want {
			t.Errorf("baseUsername(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// TestDescriptionPrefix は自己紹介文の比較用プレフィックスの切り出しを検証する。
func TestDescriptionPrefix(t *testing.T) {
	long := ""
	for i := 0; i < 60; i++ {
		long += "x"
	}

	got := descriptionPrefix(long)
	if len([]rune(got)) != descriptionPrefixLen {
		t.Errorf("descriptionPrefix length = %d, want %d", len([]rune(got)), descriptionPrefixLen)
	}

	if got := descriptionPrefix("Hello World"); got != "hello world" {
		t.Errorf("descriptionPrefix(%q) = %q, want %q", "Hello World", got, "hello world")
	}
}
