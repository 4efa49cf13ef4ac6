package domain

import "testing"

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		expected string
	}{
		{
			name:     "long secret keeps edges",
			secret:   "sk_live_abcdef123456",
			expected: "sk_l...3456",
		},
		{
			name:     "short secret fully masked",
			secret:   "tiny",
			expected: "***",
		},
		{
			name:     "eight characters fully masked",
			secret:   "12345678",
			expected: "***",
		},
		{
			name:     "empty secret",
			secret:   "",
			expected: "***",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskSecret(tt.secret); got != tt.expected {
				t.Errorf("MaskSecret(%q) = %q, want %q", tt.secret, got, tt.expected)
			}
		})
	}
}

func TestCandidateProviders(t *testing.T) {
	tests := []struct {
		kind     JobKind
		expected []ProviderType
	}{
		{JobDocToPdf, []ProviderType{ProviderConvertAPI}},
		{JobMergePdfs, []ProviderType{ProviderConvertAPI, ProviderPDFCo}},
		{JobPdfToDoc, []ProviderType{ProviderPDFCo}},
		{JobGrammarCheck, []ProviderType{ProviderTextGears}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got := CandidateProviders(tt.kind)
			if len(got) != len(tt.expected) {
				t.Fatalf("CandidateProviders(%s) = %v, want %v", tt.kind, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("CandidateProviders(%s)[%d] = %s, want %s", tt.kind, i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestServes(t *testing.T) {
	if !Serves(ProviderPDFCo, JobMergePdfs) {
		t.Error("Serves(pdfco, merge-pdf) = false, want true")
	}
	if Serves(ProviderTextGears, JobDocToPdf) {
		t.Error("Serves(textgears, doc-to-pdf) = true, want false")
	}
}
