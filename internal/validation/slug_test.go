package validation

import "testing"

func TestValidateSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		slug string
		ok   bool
	}{
		{name: "valid with number", slug: "grace-chapel-2", ok: true},
		{name: "valid simple", slug: "lighthouse", ok: true},
		{name: "too short", slug: "ab", ok: false},
		{name: "minimum length", slug: "abc", ok: true},
		{name: "uppercase", slug: "Lighthouse", ok: false},
		{name: "underscore", slug: "grace_chapel", ok: false},
		{name: "space", slug: "grace chapel", ok: false},
		{name: "symbol", slug: "grace!chapel", ok: false},
		{name: "leading hyphen", slug: "-lighthouse", ok: false},
		{name: "trailing hyphen", slug: "lighthouse-", ok: false},
		{name: "reserved admin", slug: "admin", ok: false},
		{name: "reserved api", slug: "api", ok: false},
		{name: "reserved churches", slug: "churches", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSlug(tc.slug)
			if tc.ok && err != nil {
				t.Fatalf("expected valid slug, got error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected invalid slug, got nil error")
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Grace Chapel", "grace-chapel"},
		{"  Mount  Olive!  ", "mount-olive"},
		{"Église de la Paix", "glise-de-la-paix"},
		{"ALL CAPS NAME", "all-caps-name"},
	}

	for _, tc := range tests {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidEmail(t *testing.T) {
	t.Parallel()

	valid := []string{"a@b.co", "user.name+tag@example.org"}
	invalid := []string{"", "no-at-sign", "a@b", "@example.com"}

	for _, e := range valid {
		if !ValidEmail(e) {
			t.Fatalf("expected %q to be valid", e)
		}
	}
	for _, e := range invalid {
		if ValidEmail(e) {
			t.Fatalf("expected %q to be invalid", e)
		}
	}
}
