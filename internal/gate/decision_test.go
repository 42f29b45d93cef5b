package gate

import "testing"

func TestEvaluateCoversAllCombinations(t *testing.T) {
	routes := DefaultRoutes()
	bools := []bool{false, true}
	testRoutes := []string{"/jobs", "/profile", "/login", "/setup-facial", "/legal/privacy"}

	for _, loading := range bools {
		for _, authed := range bools {
			for _, enrolled := range bools {
				for _, verified := range bools {
					for _, route := range testRoutes {
						in := Input{
							Loading:          loading,
							Authenticated:    authed,
							EnrollmentExists: enrolled,
							SessionVerified:  verified,
							Route:            route,
						}
						got := Evaluate(in, routes)

						var want State
						switch {
						case loading:
							want = Loading
						case routes.IsUnrestricted(route):
							want = Clear
						case !authed:
							want = Unauthenticated
						case !enrolled:
							want = NeedsEnrollment
						case !verified:
							want = NeedsVerification
						default:
							want = Clear
						}

						if got != want {
							t.Fatalf("Evaluate(%+v) = %v, want %v", in, got, want)
						}

						// Purity: same inputs yield the same output.
						if again := Evaluate(in, routes); again != got {
							t.Fatalf("Evaluate is not pure for %+v: %v then %v", in, got, again)
						}
					}
				}
			}
		}
	}
}

func TestUnrestrictedRoutesMatchByPrefix(t *testing.T) {
	routes := DefaultRoutes()

	cases := []struct {
		path string
		want bool
	}{
		{"/login", true},
		{"/login/reset", true},
		{"/signup", true},
		{"/setup-facial", true},
		{"/verify-facial?completed=true", true},
		{"/legal/terms", true},
		{"/jobs", false},
		{"/", false},
		{"/profile", false},
	}
	for _, tc := range cases {
		if got := routes.IsUnrestricted(tc.path); got != tc.want {
			t.Fatalf("IsUnrestricted(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestUnrestrictedRouteBypassesEvenWhenUnauthenticated(t *testing.T) {
	routes := DefaultRoutes()
	in := Input{Route: "/login"}
	if got := Evaluate(in, routes); got != Clear {
		t.Fatalf("unrestricted route must be Clear, got %v", got)
	}
}

func TestStateStrings(t *testing.T) {
	for state, want := range map[State]string{
		Loading:           "loading",
		Unauthenticated:   "unauthenticated",
		NeedsEnrollment:   "needs_enrollment",
		NeedsVerification: "needs_verification",
		Clear:             "clear",
	} {
		if state.String() != want {
			t.Fatalf("State(%d).String() = %q, want %q", state, state.String(), want)
		}
	}
}
