package authorscript

import (
	"bytes"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := []Ident{
		{Name: "A U Thor", Email: "author@example.com", Date: "Thu, 1 Jan 1970 00:00:00 +0000"},
		{Name: "O'Brien", Email: "o'brien@example.com", Date: "today"},
		{Name: `back\slash`, Email: "a@b", Date: "2024-01-01"},
		{Name: "has spaces  and  tabs\tok", Email: "a@b", Date: "d"},
		{Name: "", Email: "", Date: ""},
	}
	for _, want := range cases {
		var buf bytes.Buffer
		if err := Write(&buf, want); err != nil {
			t.Fatalf("Write(%+v): %v", want, err)
		}
		got, err := Read(&buf)
		if err != nil {
			t.Fatalf("Read(Write(%+v)): %v", want, err)
		}
		if got != want {
			t.Errorf("round trip = %+v, want %+v", got, want)
		}
	}
}

func TestWriteExactShape(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Ident{Name: "A", Email: "b@c", Date: "d"}); err != nil {
		t.Fatal(err)
	}
	want := "GIT_AUTHOR_NAME='A'\nGIT_AUTHOR_EMAIL='b@c'\nGIT_AUTHOR_DATE='d'\n"
	if buf.String() != want {
		t.Errorf("Write output = %q, want %q", buf.String(), want)
	}
}

func TestReadRejectsTrailingData(t *testing.T) {
	in := "GIT_AUTHOR_NAME='A'\nGIT_AUTHOR_EMAIL='b@c'\nGIT_AUTHOR_DATE='d'\nextra\n"
	if _, err := Read(strings.NewReader(in)); err == nil {
		t.Fatal("Read with trailing data: expected error, got nil")
	}
}

func TestReadRejectsWrongOrder(t *testing.T) {
	in := "GIT_AUTHOR_EMAIL='b@c'\nGIT_AUTHOR_NAME='A'\nGIT_AUTHOR_DATE='d'\n"
	if _, err := Read(strings.NewReader(in)); err == nil {
		t.Fatal("Read with swapped lines: expected error, got nil")
	}
}

func TestReadRejectsMalformedQuote(t *testing.T) {
	in := "GIT_AUTHOR_NAME=A\nGIT_AUTHOR_EMAIL='b@c'\nGIT_AUTHOR_DATE='d'\n"
	if _, err := Read(strings.NewReader(in)); err == nil {
		t.Fatal("Read with unquoted value: expected error, got nil")
	}
}

func TestReadRejectsTruncated(t *testing.T) {
	in := "GIT_AUTHOR_NAME='A'\n"
	if _, err := Read(strings.NewReader(in)); err == nil {
		t.Fatal("Read with only one line: expected error, got nil")
	}
}
