package config

const (
	defaultWorkDir                = "~/.local/share/reelscribe/work"
	defaultTranscriptsDir         = "~/reelscribe/transcripts"
	defaultStateDir               = "~/.local/share/reelscribe"
	defaultLedgerPath             = "city_locality_list.csv"
	defaultTopicColumn            = "city"
	defaultDaysColumn             = "days"
	defaultOutputColumn           = "transcription_path"
	defaultYtDlpBinary            = "yt-dlp"
	defaultMaxResults             = 200
	defaultMinDurationSeconds     = 50
	defaultQuerySuffix            = " real estate market"
	defaultSearchTimeout          = 600
	defaultAudioFormat            = "mp3"
	defaultDownloadRetries        = 2
	defaultDownloadTimeout        = 1800
	defaultClassifierCommand      = "reelscribe-langid"
	defaultClassifierModelRepo    = "speechbrain/lang-id-voxlingua107-ecapa"
	defaultClassifierModelDir     = "~/.local/share/reelscribe/models/speechbrain"
	defaultHubURL                 = "https://huggingface.co"
	defaultExcerptSeconds         = 50
	defaultClassifierSampleRate   = 16000
	defaultClassifierMaxFrames    = 960000
	defaultFallbackLanguage       = "en"
	defaultFallbackPolicy         = FallbackPolicyFallback
	defaultClassifierTimeout      = 300
	defaultChunkFrames            = 4000
	defaultWhisperXVADMethod      = "silero"
	defaultRecognitionTimeout     = 3600
	defaultCandidateWorkers       = 1
	defaultStaleWorkHours         = 24
	defaultNtfyRequestTimeout     = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
	defaultVoskModelRoot          = "~/.local/share/reelscribe/models/"
	defaultWhisperXRecognizeModel = "large-v3"
)

// Classification fallback policies.
const (
	FallbackPolicyFallback = "fallback"
	FallbackPolicySkip     = "skip"
)

// Recognition engine backends.
const (
	EngineVosk     = "vosk"
	EngineWhisperX = "whisperx"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:        defaultWorkDir,
			TranscriptsDir: defaultTranscriptsDir,
			StateDir:       defaultStateDir,
		},
		Ledger: Ledger{
			Path:         defaultLedgerPath,
			TopicColumn:  defaultTopicColumn,
			DaysColumn:   defaultDaysColumn,
			OutputColumn: defaultOutputColumn,
		},
		Discovery: Discovery{
			YtDlpBinary:        defaultYtDlpBinary,
			MaxResults:         defaultMaxResults,
			MinDurationSeconds: defaultMinDurationSeconds,
			QuerySuffix:        defaultQuerySuffix,
			UpdateOnStart:      true,
			SearchTimeout:      defaultSearchTimeout,
		},
		Acquire: Acquire{
			AudioFormat:     defaultAudioFormat,
			Retries:         defaultDownloadRetries,
			DownloadTimeout: defaultDownloadTimeout,
		},
		Identifier: Identifier{
			Command:          defaultClassifierCommand,
			ModelRepo:        defaultClassifierModelRepo,
			ModelDir:         defaultClassifierModelDir,
			HubURL:           defaultHubURL,
			ExcerptSeconds:   defaultExcerptSeconds,
			SampleRate:       defaultClassifierSampleRate,
			MaxFrames:        defaultClassifierMaxFrames,
			FallbackLanguage: defaultFallbackLanguage,
			FallbackPolicy:   defaultFallbackPolicy,
			Timeout:          defaultClassifierTimeout,
		},
		Languages: Languages{
			Accepted: []string{"en", "hi", "te", "gu"},
			Models: map[string]LanguageModel{
				"en": {Engine: EngineVosk, Path: defaultVoskModelRoot + "vosk-model-small-en-in-0.4"},
				"hi": {Engine: EngineVosk, Path: defaultVoskModelRoot + "vosk-model-small-hi-0.22"},
				"te": {Engine: EngineVosk, Path: defaultVoskModelRoot + "vosk-model-small-te-0.42"},
				"gu": {Engine: EngineVosk, Path: defaultVoskModelRoot + "vosk-model-small-gu-0.42"},
			},
		},
		Recognition: Recognition{
			ChunkFrames:       defaultChunkFrames,
			WhisperXVADMethod: defaultWhisperXVADMethod,
			Timeout:           defaultRecognitionTimeout,
		},
		Workflow: Workflow{
			CandidateWorkers: defaultCandidateWorkers,
			StaleWorkHours:   defaultStaleWorkHours,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
