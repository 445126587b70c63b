package i18n

import "testing"

func TestGetCatalogFallsBackToBaseLocale(t *testing.T) {
	catalog := GetCatalog("xx-XX")
	if catalog.Locale() != BaseLocale {
		t.Fatalf("expected %s, got %s", BaseLocale, catalog.Locale())
	}
}

func TestFormatSubstitutesMetadata(t *testing.T) {
	catalog := GetCatalog("en-US")
	msg := catalog.Format(CodeEntityNotFound, map[string]string{"EntityID": "pc-1"})
	if msg != "Entity pc-1 was not found" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestFormatUnknownCodeReturnsCode(t *testing.T) {
	catalog := GetCatalog("en-US")
	if msg := catalog.Format("NO_SUCH_CODE", nil); msg != "NO_SUCH_CODE" {
		t.Fatalf("expected code fallthrough, got %q", msg)
	}
}

func TestFormatNilMetadata(t *testing.T) {
	catalog := GetCatalog("en-US")
	msg := catalog.Format(CodeEntityNotFound, nil)
	if msg != "Entity  was not found" {
		t.Fatalf("expected empty substitution, got %q", msg)
	}
}

func TestRegisterCatalog(t *testing.T) {
	RegisterCatalog("pt-BR", NewCatalog("pt-BR", map[Code]string{
		CodeHistoryEmpty: "Nada para desfazer aqui",
	}))

	catalog := GetCatalog("pt-BR")
	if catalog.Locale() != "pt-BR" {
		t.Fatalf("expected pt-BR, got %s", catalog.Locale())
	}
	if msg := catalog.Format(CodeHistoryEmpty, nil); msg != "Nada para desfazer aqui" {
		t.Fatalf("unexpected message: %q", msg)
	}
}
