package catconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// LoadConfig parses a key=value configuration file with [section]
// headers, starting from DefaultConfig and overriding whichever fields
// are present. Sections are "l2", "l3", and "l4"; everything else is
// top-level.
func LoadConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	section := ""

	for lineNum, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || line[0] == '#' {
			continue
		}
		if line[0] == '[' {
			end := strings.Index(line, "]")
			if end < 0 {
				return nil, fmt.Errorf("line %d: unclosed section header", lineNum+1)
			}
			section = strings.ToLower(strings.TrimSpace(line[1:end]))
			continue
		}
		eqIdx := strings.Index(line, "=")
		if eqIdx < 0 {
			return nil, fmt.Errorf("line %d: expected key = value", lineNum+1)
		}
		key := strings.TrimSpace(line[:eqIdx])
		val := strings.TrimSpace(line[eqIdx+1:])
		if err := applyConfigValue(&cfg, section, key, val, lineNum+1); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func applyConfigValue(cfg *Config, section, key, val string, lineNum int) error {
	switch section {
	case "":
		return applyTopLevel(cfg, key, val, lineNum)
	case "l2":
		return applyLevel(&cfg.L2, "l2", key, val, lineNum)
	case "l3":
		return applyLevel(&cfg.L3, "l3", key, val, lineNum)
	case "l4":
		return applyLevel(&cfg.L4, "l4", key, val, lineNum)
	default:
		return fmt.Errorf("line %d: unknown section [%s]", lineNum, section)
	}
}

func applyTopLevel(cfg *Config, key, val string, lineNum int) error {
	switch key {
	case "cores":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("line %d: invalid cores: %w", lineNum, err)
		}
		cfg.Cores = n
	case "line_size":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("line %d: invalid line_size: %w", lineNum, err)
		}
		cfg.LineSize = n
	case "warmup_misses":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("line %d: invalid warmup_misses: %w", lineNum, err)
		}
		cfg.WarmupMisses = n
	case "sim_misses":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("line %d: invalid sim_misses: %w", lineNum, err)
		}
		cfg.SimMisses = n
	case "warmup_insts":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("line %d: invalid warmup_insts: %w", lineNum, err)
		}
		cfg.WarmupInsts = n
	case "sim_insts":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("line %d: invalid sim_insts: %w", lineNum, err)
		}
		cfg.SimInsts = n
	case "l1_trace":
		cfg.L1Trace = unquote(val)
	case "l2_trace":
		cfg.L2Trace = unquote(val)
	case "l2_trace_out":
		cfg.L2TraceOut = unquote(val)
	case "metrics_addr":
		cfg.MetricsAddr = unquote(val)
	case "log_file":
		cfg.LogFile = unquote(val)
	default:
		return fmt.Errorf("line %d: unknown top-level key %q", lineNum, key)
	}
	return nil
}

func applyLevel(lvl *LevelConfig, section, key, val string, lineNum int) error {
	switch key {
	case "size":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("line %d: invalid %s size: %w", lineNum, section, err)
		}
		lvl.Size = n
	case "assoc":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("line %d: invalid %s assoc: %w", lineNum, section, err)
		}
		lvl.Assoc = n
	case "replace_policy":
		lvl.ReplacePolicy = unquote(val)
	case "insert_policy":
		lvl.InsertPolicy = unquote(val)
	case "noninc":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("line %d: invalid %s noninc: %w", lineNum, section, err)
		}
		lvl.NonInclusive = b
	case "evict_write":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("line %d: invalid %s evict_write: %w", lineNum, section, err)
		}
		lvl.EvictWriteThreshold = n
	default:
		return fmt.Errorf("line %d: unknown key %q in [%s]", lineNum, key, section)
	}
	return nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
