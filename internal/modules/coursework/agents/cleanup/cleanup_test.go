package cleanup

import "testing"

func TestClean(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"apostrophe", "the blockâ€™s mass", "the block’s mass"},
		{"quotes", "â€œnet forceâ€\u009d", "“net force”"},
		{"dashes", "a â€“ b â€” c", "a – b — c"},
		{"nbsp and bom", "ï»¿Q1.Â\u00a0Find x", "Q1. Find x"},
		{"control bytes", "Q1\x00\x07 find\tx\x1b", "Q1 find\tx"},
		{"space runs", "find    the   value", "find the value"},
		{"newline runs", "Q1\r\n\r\n\r\n\r\nQ2  \n", "Q1\n\nQ2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clean(tc.in); got != tc.want {
				t.Fatalf("Clean: want=%q got=%q", tc.want, got)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	in := "  â€œProblem 1â€\u009d\x00\n\n\n\n(a)  Show   that Â\u00a0x > 0.  \n"
	once := Clean(in)
	if twice := Clean(once); twice != once {
		t.Fatalf("Clean twice: want=%q got=%q", once, twice)
	}
}
