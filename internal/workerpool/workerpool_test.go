package workerpool

import "testing"

func TestFamilyStripsWithInfoSuffix(t *testing.T) {
	cases := map[string]string{
		"kafka":                "kafka",
		"kafka-withinfo":       "kafka",
		"rabbitmq-withinfo":    "rabbitmq",
		"sqs-withinfo":         "sqs",
		"azure-queue-withinfo": "azure-queue",
		"url":                  "url",
	}
	for in, want := range cases {
		if got := family(in); got != want {
			t.Fatalf("family(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUnknownSubcommandErrorMessage(t *testing.T) {
	err := unknownSubcommandError("bogus")
	if err.Error() != "no backend registered for subcommand bogus" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
