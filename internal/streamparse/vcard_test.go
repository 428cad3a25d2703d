package streamparse

import (
	"context"
	"testing"
)

func TestVCardParserBasic(t *testing.T) {
	content := "BEGIN:VCARD\r\n" +
		"VERSION:3.0\r\n" +
		"FN:Jane Doe\r\n" +
		"EMAIL:jane@work.com\r\n" +
		"EMAIL:jane@home.com\r\n" +
		"NOTE:line one\r\n" +
		" continues here\r\n" +
		"END:VCARD\r\n" +
		"BEGIN:VCARD\r\n" +
		"FN:John Roe\r\n" +
		"END:VCARD\r\n"
	path := writeTempNamed(t, ".vcf", content)

	p := NewVCardParser()
	var emissions []Emission
	res, err := Run(context.Background(), path, p, Options{}, func(e Emission) {
		emissions = append(emissions, e)
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.TotalRecords != 2 {
		t.Fatalf("expected 2 vcards, got %d", res.TotalRecords)
	}
	if emissions[0].Values["FN"] != "Jane Doe" {
		t.Errorf("expected FN value, got %q", emissions[0].Values["FN"])
	}
	if emissions[0].Values["EMAIL"] != "jane@work.com, jane@home.com" {
		t.Errorf("expected accumulated EMAIL values, got %q", emissions[0].Values["EMAIL"])
	}
}
