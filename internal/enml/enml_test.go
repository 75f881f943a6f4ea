package enml

import (
	"reflect"
	"testing"
)

const sampleNote = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE en-note SYSTEM "http://xml.evernote.com/pub/enml2.dtd">
<en-note><div>Buy <b>milk</b> &amp; bread</div><div><en-todo checked="true"/>Call Ann</div><div><en-todo/>Pay rent</div></en-note>`

func TestParse_TextAndMarkers(t *testing.T) {
	r, err := Parse(sampleNote)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Buy milk & bread\nCall Ann\nPay rent"
	if r.PlainText != want {
		t.Errorf("plain text = %q, want %q", r.PlainText, want)
	}
	if !r.HasFinishedToDo || !r.HasUnfinishedToDo {
		t.Errorf("todo markers = %v/%v, want both", r.HasFinishedToDo, r.HasUnfinishedToDo)
	}
	if r.HasEncryption {
		t.Error("unexpected encryption marker")
	}
	wantWords := []string{"buy", "milk", "bread", "call", "ann", "pay", "rent"}
	if !reflect.DeepEqual(r.Words, wantWords) {
		t.Errorf("words = %v, want %v", r.Words, wantWords)
	}
}

func TestParse_EncryptedTextSkipped(t *testing.T) {
	r, err := Parse(`<en-note><div>visible</div><en-crypt cipher="AES">c2VjcmV0</en-crypt></en-note>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.HasEncryption {
		t.Error("expected encryption marker")
	}
	if r.PlainText != "visible" {
		t.Errorf("plain text = %q", r.PlainText)
	}
}

func TestParse_NoToDo(t *testing.T) {
	r, err := Parse(`<en-note>plain</en-note>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.HasFinishedToDo || r.HasUnfinishedToDo {
		t.Error("no to-do expected")
	}
}

func TestFold_StripsDiacritics(t *testing.T) {
	if got := Fold("Crème Brûlée"); got != "creme brulee" {
		t.Errorf("Fold = %q", got)
	}
}

func TestWords_Dedupe(t *testing.T) {
	got := Words("Hello, hello! World-wide; ÉTÉ")
	want := []string{"hello", "world", "wide", "ete"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Words = %v, want %v", got, want)
	}
}

func TestRecognitionText(t *testing.T) {
	reco := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<recoIndex docType="handwritten" objType="image" objID="a" engineVersion="5.5" recoType="service" lang="en" objWidth="100" objHeight="50">
<item x="1" y="2" w="3" h="4"><t w="87">Invoice</t><t w="20">lnvoice</t></item>
<item x="5" y="6" w="7" h="8"><t w="70">Café,</t></item>
</recoIndex>`)
	got, err := RecognitionText(reco)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "invoice lnvoice cafe" {
		t.Errorf("RecognitionText = %q", got)
	}
}
