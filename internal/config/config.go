// Package config loads the ingestion bridge's configuration by layered
// merge — built-in defaults, then OS environment variables, then CLI
// flags — and produces a validated, immutable snapshot.
//
// This mirrors the layering in github.com/senzing-garage/stream-loader's
// pkg/config.Load (cleanenv for env binding, go-playground/validator for
// struct-tag validation) and additionally binds a handful of CLI flags for
// the overrides operators reach for most, since no CLI framework
// (cobra/urfave/kingpin) appears as a direct dependency anywhere in the
// retrieval pack — flag is the only ecosystem-shown option here.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"

	apperrors "github.com/senzing-garage/stream-loader/pkg/errors"
)

// Config is the full superset of options across every subcommand. A given
// subcommand only requires the subset relevant to its backend; Validate
// enforces that subset.
type Config struct {
	Subcommand string `env:"SENZING_SUBCOMMAND"`

	// Database / resolver
	DatabaseURL              string `env:"SENZING_DATABASE_URL"`
	EngineConfigurationJSON  string `env:"SENZING_ENGINE_CONFIGURATION_JSON"`
	ConfigPath               string `env:"SENZING_CONFIG_PATH" env-default:"/etc/opt/senzing"`
	ResourcePath             string `env:"SENZING_RESOURCE_PATH" env-default:"/opt/senzing/g2/resources"`
	SupportPath              string `env:"SENZING_SUPPORT_PATH" env-default:"/opt/senzing/data"`
	SkipDatabasePerfTest     bool   `env:"SENZING_SKIP_DATABASE_PERFORMANCE_TEST" env-default:"false"`
	PrimeEngine              bool   `env:"SENZING_PRIME_ENGINE" env-default:"false"`
	Debug                    bool   `env:"SENZING_DEBUG" env-default:"false"`

	// Record defaults / directive
	DataSource   string `env:"SENZING_DATA_SOURCE"`
	EntityType   string `env:"SENZING_ENTITY_TYPE"`
	DirectiveKey string `env:"SENZING_DIRECTIVE_KEY" env-default:"senzingStreamLoader"`

	// Concurrency / lifecycle
	ThreadsPerProcess        int  `env:"SENZING_THREADS_PER_PROCESS" env-default:"4" validate:"min=1"`
	DelayInSeconds           int  `env:"SENZING_DELAY_IN_SECONDS" env-default:"0" validate:"min=0"`
	DelayRandomized          bool `env:"SENZING_DELAY_RANDOMIZED" env-default:"false"`
	ConfigurationCheckFrequency int `env:"SENZING_CONFIGURATION_CHECK_FREQUENCY" env-default:"60" validate:"min=0"`

	// Monitor
	MonitoringPeriodInSeconds   int `env:"SENZING_MONITORING_PERIOD_IN_SECONDS" env-default:"600"`
	LogLicensePeriodInSeconds   int `env:"SENZING_LOG_LICENSE_PERIOD_IN_SECONDS" env-default:"86400"`
	ExpirationWarningInDays     int `env:"SENZING_EXPIRATION_WARNING_IN_DAYS" env-default:"60"`

	// Kafka
	KafkaBootstrapServer       string `env:"SENZING_KAFKA_BOOTSTRAP_SERVER"`
	KafkaTopic                 string `env:"SENZING_KAFKA_TOPIC" env-default:"senzing-kafka-topic"`
	KafkaGroup                 string `env:"SENZING_KAFKA_GROUP" env-default:"senzing-kafka-group"`
	KafkaFailureBootstrapServer string `env:"SENZING_KAFKA_FAILURE_BOOTSTRAP_SERVER"`
	KafkaFailureTopic          string `env:"SENZING_KAFKA_FAILURE_TOPIC"`
	KafkaInfoBootstrapServer   string `env:"SENZING_KAFKA_INFO_BOOTSTRAP_SERVER"`
	KafkaInfoTopic             string `env:"SENZING_KAFKA_INFO_TOPIC"`

	// RabbitMQ
	RabbitmqHost                     string `env:"SENZING_RABBITMQ_HOST"`
	RabbitmqPort                     int    `env:"SENZING_RABBITMQ_PORT" env-default:"5672"`
	RabbitmqUsername                 string `env:"SENZING_RABBITMQ_USERNAME" env-default:"guest"`
	RabbitmqPassword                 string `env:"SENZING_RABBITMQ_PASSWORD" env-default:"guest"`
	RabbitmqExchange                 string `env:"SENZING_RABBITMQ_EXCHANGE"`
	RabbitmqQueue                    string `env:"SENZING_RABBITMQ_QUEUE"`
	RabbitmqPrefetchCount            int    `env:"SENZING_RABBITMQ_PREFETCH_COUNT" env-default:"50"`
	RabbitmqUseExistingEntities      bool   `env:"SENZING_RABBITMQ_USE_EXISTING_ENTITIES" env-default:"false"`
	RabbitmqHeartbeatInSeconds       int    `env:"SENZING_RABBITMQ_HEARTBEAT_IN_SECONDS" env-default:"60"`
	RabbitmqReconnectDelayInSeconds  int    `env:"SENZING_RABBITMQ_RECONNECT_DELAY_IN_SECONDS" env-default:"60"`
	RabbitmqReconnectNumberOfRetries int    `env:"SENZING_RABBITMQ_RECONNECT_NUMBER_OF_RETRIES" env-default:"10"`

	RabbitmqFailureHost        string `env:"SENZING_RABBITMQ_FAILURE_HOST"`
	RabbitmqFailurePort        int    `env:"SENZING_RABBITMQ_FAILURE_PORT" env-default:"5672"`
	RabbitmqFailureUsername    string `env:"SENZING_RABBITMQ_FAILURE_USERNAME"`
	RabbitmqFailurePassword    string `env:"SENZING_RABBITMQ_FAILURE_PASSWORD"`
	RabbitmqFailureExchange    string `env:"SENZING_RABBITMQ_FAILURE_EXCHANGE"`
	RabbitmqFailureQueue       string `env:"SENZING_RABBITMQ_FAILURE_QUEUE"`
	RabbitmqFailureRoutingKey  string `env:"SENZING_RABBITMQ_FAILURE_ROUTING_KEY"`

	RabbitmqInfoHost       string `env:"SENZING_RABBITMQ_INFO_HOST"`
	RabbitmqInfoPort       int    `env:"SENZING_RABBITMQ_INFO_PORT" env-default:"5672"`
	RabbitmqInfoUsername   string `env:"SENZING_RABBITMQ_INFO_USERNAME"`
	RabbitmqInfoPassword   string `env:"SENZING_RABBITMQ_INFO_PASSWORD"`
	RabbitmqInfoExchange   string `env:"SENZING_RABBITMQ_INFO_EXCHANGE"`
	RabbitmqInfoQueue      string `env:"SENZING_RABBITMQ_INFO_QUEUE"`
	RabbitmqInfoRoutingKey string `env:"SENZING_RABBITMQ_INFO_ROUTING_KEY"`

	// SQS
	SqsQueueURL                string `env:"SENZING_SQS_QUEUE_URL"`
	SqsFailureQueueURL         string `env:"SENZING_SQS_FAILURE_QUEUE_URL"`
	SqsInfoQueueURL            string `env:"SENZING_SQS_INFO_QUEUE_URL"`
	SqsInfoQueueDelaySeconds   int    `env:"SENZING_SQS_INFO_QUEUE_DELAY_SECONDS" env-default:"0"`
	SqsWaitTimeSeconds         int    `env:"SENZING_SQS_WAIT_TIME_SECONDS" env-default:"20"`
	SqsVisibilityTimeout       int    `env:"SENZING_SQS_VISIBILITY_TIMEOUT_SECONDS" env-default:"30"`
	SqsDeadLetterQueueEnabled  bool   `env:"SENZING_SQS_DEAD_LETTER_QUEUE_ENABLED" env-default:"false"`
	ExitOnEmptyQueue           bool   `env:"SENZING_EXIT_ON_EMPTY_QUEUE" env-default:"false"`
	SleepTimeInSeconds         int    `env:"SENZING_SLEEP_TIME_IN_SECONDS" env-default:"0"`

	// Azure Service Bus
	AzureQueueConnectionString        string `env:"SENZING_AZURE_QUEUE_CONNECTION_STRING"`
	AzureQueueName                    string `env:"SENZING_AZURE_QUEUE_NAME"`
	AzureFailureQueueConnectionString string `env:"SENZING_AZURE_FAILURE_QUEUE_CONNECTION_STRING"`
	AzureFailureQueueName             string `env:"SENZING_AZURE_FAILURE_QUEUE_NAME"`
	AzureInfoQueueConnectionString    string `env:"SENZING_AZURE_INFO_QUEUE_CONNECTION_STRING"`
	AzureInfoQueueName                string `env:"SENZING_AZURE_INFO_QUEUE_NAME"`

	// URL/STDIN
	InputURL  string `env:"SENZING_INPUT_URL"`
	QueueMax  int    `env:"SENZING_QUEUE_MAX" env-default:"10"`

	// Logging / diagnostics
	LogLevel       string `env:"SENZING_LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	ProductID      string `env:"SENZING_PRODUCT_ID" env-default:"5001"`
	PstackPID      int    `env:"SENZING_PSTACK_PID" env-default:"0"`
	DockerLaunched bool   `env:"SENZING_DOCKER_LAUNCHED" env-default:"false"`

	// derived, not bound to any env var
	StartTime time.Time `env:"-"`
}

// Load builds the Config by layered merge: struct env-default tags
// (built-in defaults) → OS environment variables → CLI flags (args,
// excluding the subcommand token at args[0]).
func Load(subcommand string, args []string) (*Config, error) {
	cfg := &Config{Subcommand: subcommand}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, apperrors.New("CONFIG_ENV_READ_FAILED", "failed to read environment configuration", err)
	}

	fs := flag.NewFlagSet(subcommand, flag.ContinueOnError)
	bindFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, apperrors.New("CONFIG_FLAG_PARSE_FAILED", "failed to parse command-line flags", err)
	}

	cfg.StartTime = now()

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// now is a var so tests can stub the start-time stamp.
var now = time.Now

// Validate runs struct-tag validation plus the subcommand-specific
// mandatory-option rules described in §4.1. Every offending rule is
// logged before a single aggregate error is returned, so an operator
// fixing a multi-field misconfiguration does not have to restart once per
// missing flag.
func Validate(cfg *Config) error {
	var problems []string

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("field %s failed rule %q", fe.Field(), fe.Tag()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	if cfg.DatabaseURL != "" {
		if parsed, err := ParseDatabaseURL(cfg.DatabaseURL); err != nil {
			problems = append(problems, fmt.Sprintf("SENZING_DATABASE_URL is malformed: %v", err))
		} else if parsed.String() != cfg.DatabaseURL {
			// Round-trip self-check: a mismatch is reported but does not
			// fail validation.
			fmt.Fprintln(os.Stderr, "configuration warning: SENZING_DATABASE_URL does not reassemble to its original form")
		}
	} else if cfg.EngineConfigurationJSON == "" {
		problems = append(problems, "SENZING_DATABASE_URL (or SENZING_ENGINE_CONFIGURATION_JSON) is mandatory")
	}

	problems = append(problems, subcommandRules(cfg)...)

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(os.Stderr, "configuration error:", p)
		}
		return apperrors.New("CONFIG_INVALID", fmt.Sprintf("%d configuration error(s), see stderr", len(problems)), nil)
	}
	return nil
}

func subcommandRules(cfg *Config) []string {
	var problems []string
	require := func(cond bool, msg string) {
		if !cond {
			problems = append(problems, msg)
		}
	}

	switch cfg.Subcommand {
	case "kafka", "kafka-withinfo":
		require(cfg.KafkaBootstrapServer != "", "SENZING_KAFKA_BOOTSTRAP_SERVER is mandatory for kafka subcommands")
	case "rabbitmq", "rabbitmq-withinfo":
		require(cfg.RabbitmqHost != "", "SENZING_RABBITMQ_HOST is mandatory for rabbitmq subcommands")
		require(cfg.RabbitmqQueue != "", "SENZING_RABBITMQ_QUEUE is mandatory for rabbitmq subcommands")
	case "sqs", "sqs-withinfo":
		require(cfg.SqsQueueURL != "", "SENZING_SQS_QUEUE_URL is mandatory for sqs subcommands")
	case "azure-queue", "azure-queue-withinfo":
		require(cfg.AzureQueueConnectionString != "", "SENZING_AZURE_QUEUE_CONNECTION_STRING is mandatory for azure-queue subcommands")
		require(cfg.AzureQueueName != "", "SENZING_AZURE_QUEUE_NAME is mandatory for azure-queue subcommands")
	}
	return problems
}

// bindFlags binds the overrides operators reach for most on the command
// line, defaulting each flag to the value already loaded from the
// environment so CLI flags are the final, highest-precedence layer.
func bindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "SENZING_DATABASE_URL override")
	fs.StringVar(&cfg.DataSource, "data-source", cfg.DataSource, "SENZING_DATA_SOURCE override")
	fs.StringVar(&cfg.EntityType, "entity-type", cfg.EntityType, "SENZING_ENTITY_TYPE override")
	fs.IntVar(&cfg.ThreadsPerProcess, "threads-per-process", cfg.ThreadsPerProcess, "SENZING_THREADS_PER_PROCESS override")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "SENZING_DEBUG override")
	fs.StringVar(&cfg.KafkaBootstrapServer, "kafka-bootstrap-server", cfg.KafkaBootstrapServer, "SENZING_KAFKA_BOOTSTRAP_SERVER override")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "SENZING_KAFKA_TOPIC override")
	fs.StringVar(&cfg.RabbitmqHost, "rabbitmq-host", cfg.RabbitmqHost, "SENZING_RABBITMQ_HOST override")
	fs.StringVar(&cfg.RabbitmqQueue, "rabbitmq-queue", cfg.RabbitmqQueue, "SENZING_RABBITMQ_QUEUE override")
	fs.StringVar(&cfg.SqsQueueURL, "sqs-queue-url", cfg.SqsQueueURL, "SENZING_SQS_QUEUE_URL override")
	fs.StringVar(&cfg.AzureQueueConnectionString, "azure-queue-connection-string", cfg.AzureQueueConnectionString, "SENZING_AZURE_QUEUE_CONNECTION_STRING override")
	fs.StringVar(&cfg.AzureQueueName, "azure-queue-name", cfg.AzureQueueName, "SENZING_AZURE_QUEUE_NAME override")
	fs.StringVar(&cfg.InputURL, "input-url", cfg.InputURL, "SENZING_INPUT_URL override")
}

// Redact returns a copy of cfg with credential-shaped fields replaced, fit
// for the single JSON config dump logged at startup and shutdown.
func (c *Config) Redact() Config {
	redacted := *c
	redacted.DatabaseURL = redactDatabaseURL(c.DatabaseURL)
	redacted.RabbitmqPassword = "***"
	redacted.RabbitmqFailurePassword = "***"
	redacted.RabbitmqInfoPassword = "***"
	redacted.AzureQueueConnectionString = redactConnectionString(c.AzureQueueConnectionString)
	redacted.AzureFailureQueueConnectionString = redactConnectionString(c.AzureFailureQueueConnectionString)
	redacted.AzureInfoQueueConnectionString = redactConnectionString(c.AzureInfoQueueConnectionString)
	redacted.EngineConfigurationJSON = redactIfNonEmpty(c.EngineConfigurationJSON)
	return redacted
}

func redactIfNonEmpty(s string) string {
	if s == "" {
		return s
	}
	return "***"
}

func redactConnectionString(s string) string {
	if s == "" {
		return s
	}
	return "***"
}

func redactDatabaseURL(rawURL string) string {
	if rawURL == "" {
		return rawURL
	}
	parsed, err := ParseDatabaseURL(rawURL)
	if err != nil {
		return "***"
	}
	parsed.Password = "***"
	return parsed.String()
}
