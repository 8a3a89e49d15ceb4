package credentialexchange

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"
	"time"

	ini "gopkg.in/ini.v1"
)

var (
	ErrSectionNotFound = errors.New("section not found")
	ErrConfigFailure   = errors.New("config error")
)

func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatal("unable to get the user home dir")
	}
	return home
}

func ConfigIniFile(basePath string) string {
	var base string
	if basePath != "" {
		base = basePath
	} else {
		base = HomeDir()
	}
	return path.Join(base, fmt.Sprintf(".%s.ini", SELF_NAME))
}

// SessionName builds a unique role session name from the caller principal
// and the current time.
func SessionName(principal string) string {
	return fmt.Sprintf("%s-%d", principal, time.Now().Unix())
}

// RoleArn constructs the target role ARN for an account/role pair.
func RoleArn(accountID, role string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, role)
}

// MfaDeviceArn constructs the virtual MFA device ARN for a principal in the
// MFA issuing account.
func MfaDeviceArn(mfaAccountID, principal string) string {
	return fmt.Sprintf("arn:aws:iam::%s:mfa/%s", mfaAccountID, principal)
}

// SamlProviderArn constructs the IdP principal ARN registered in the target
// account.
func SamlProviderArn(accountID string) string {
	return fmt.Sprintf("arn:aws:iam::%s:saml-provider/%s", accountID, SELF_NAME)
}

func principalFromArn(arn string) string {
	if idx := strings.LastIndex(arn, "/"); idx >= 0 {
		return arn[idx+1:]
	}
	return arn
}

// SetCredentials emits the resolved credential at the process boundary -
// either as export assignments on stdout for consumption by a parent shell,
// or into a named section of the shared AWS credentials file.
func SetCredentials(creds *AWSCredentials, config CredentialConfig) error {
	if config.BaseConfig.StoreInProfile {
		return storeCredentialsInProfile(*creds, config.BaseConfig.CfgSectionName)
	}
	return WriteShellExports(os.Stdout, *creds, config.BaseConfig.Alias)
}

// WriteShellExports emits the three secret assignments plus the account
// alias assignment, in that order and nothing else.
func WriteShellExports(w io.Writer, creds AWSCredentials, alias string) error {
	_, err := fmt.Fprintf(w, "export AWS_ACCESS_KEY_ID=%s\nexport AWS_SECRET_ACCESS_KEY=%s\nexport AWS_SESSION_TOKEN=%s\nexport AWS_ACCOUNT_NAME=%s\n",
		creds.AWSAccessKey, creds.AWSSecretKey, creds.AWSSessionToken, alias)
	return err
}

func storeCredentialsInProfile(creds AWSCredentials, configSection string) error {
	var awsConfPath string

	if overriddenpath, exists := os.LookupEnv("AWS_SHARED_CREDENTIALS_FILE"); exists {
		awsConfPath = overriddenpath
	} else {
		awsCredsPath := path.Join(HomeDir(), ".aws", "credentials")
		if _, err := os.Stat(awsCredsPath); os.IsNotExist(err) {
			os.Mkdir(awsCredsPath, 0655)
		}
		awsConfPath = awsCredsPath
	}

	cfg, err := ini.Load(awsConfPath)
	if err != nil {
		return fmt.Errorf("fail to read credentials file: %v, %w", err, ErrConfigFailure)
	}
	cfg.Section(configSection).Key("aws_access_key_id").SetValue(creds.AWSAccessKey)
	cfg.Section(configSection).Key("aws_secret_access_key").SetValue(creds.AWSSecretKey)
	cfg.Section(configSection).Key("aws_session_token").SetValue(creds.AWSSessionToken)
	cfg.SaveTo(awsConfPath)

	return nil
}

// WriteIniSection records a cache key in the tool's own ini file so that
// clear-cache can enumerate the secret store entries it owns.
func WriteIniSection(cacheKey string) error {
	section := fmt.Sprintf("%s.%s", INI_CONF_SECTION, cacheKey)
	iniFile := ConfigIniFile("")
	if _, err := os.Stat(iniFile); os.IsNotExist(err) {
		if err := os.WriteFile(iniFile, []byte{}, 0600); err != nil {
			return fmt.Errorf("fail to create ini file: %v, %w", err, ErrConfigFailure)
		}
	}
	cfg, err := ini.Load(iniFile)
	if err != nil {
		return fmt.Errorf("fail to read ini file: %v, %w", err, ErrConfigFailure)
	}
	if !cfg.HasSection(section) {
		sct, err := cfg.NewSection(section)
		if err != nil {
			return err
		}
		sct.Key("name").SetValue(cacheKey)
		cfg.SaveTo(iniFile)
	}

	return nil
}

func GetAllIniSections() ([]string, error) {
	sections := []string{}
	cfg, err := ini.Load(ConfigIniFile(""))
	if err != nil {
		return nil, err
	}
	for _, v := range cfg.Section(INI_CONF_SECTION).ChildSections() {
		sections = append(sections, strings.Replace(v.Name(), fmt.Sprintf("%s.", INI_CONF_SECTION), "", -1))
	}
	return sections, nil
}

// RoleKeyConverter converts a role to a key used for storing in key store
func RoleKeyConverter(role string) string {
	return strings.ReplaceAll(strings.ReplaceAll(role, ":", "_"), "/", "____")
}

// KeyRoleConverter converts a key back to a role
func KeyRoleConverter(key string) string {
	return strings.ReplaceAll(strings.ReplaceAll(key, "____", "/"), "_", ":")
}
