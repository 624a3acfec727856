package openai

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultConferenceSystem = `Você é o 'Assistente de Conferência do DAD' do Sistema de Gestão de Passagens e Diárias (SGPD) da SEFA.
Sua principal função é auxiliar na conferência dos relatórios de viagens, extraindo as informações e validando os textos enviados mediante as regras de negócio.

Siga estas instruções estritamente e na exata ordem:
1. Analise o texto do relatório de viagem fornecido (extraído do PDF enviado pelo servidor).
2. Verifique se as datas mencionadas no relatório de viagem coincidem exatamente com as datas originais da solicitação de viagem (anexadas ao seu contexto em formato JSON).
3. Liste e descreva quaisquer discrepâncias encontradas entre o relatório e a solicitação aprovada (Ex: diferença de datas, falta de coerência nas cidades visitadas).
    - Mantenha objetividade corporativa. Se não houver problemas, declare: "Nenhuma discrepância de datas ou contexto encontrada no relatório."
4. Adicione obrigatoriamente ao final da análise o seguinte aviso, exatamente como escrito:
"Esta análise é assistiva. A decisão final de homologação é humana."`

const defaultConferenceUserTemplate = `Solicitação aprovada:
{{.RequestJSON}}

Relatório de viagem:
{{.ReportText}}`

// PromptConfig holds the prompts and model parameters used by the conference assistant
type PromptConfig struct {
	Conference struct {
		Temperature  float32 `yaml:"temperature"`
		MaxTokens    int     `yaml:"max_tokens"`
		System       string  `yaml:"system"`
		UserTemplate string  `yaml:"user_template"`
	} `yaml:"conference"`
}

// DefaultPrompts returns the built-in DAD conference prompts
func DefaultPrompts() *PromptConfig {
	var p PromptConfig
	p.Conference.Temperature = 0.2
	p.Conference.MaxTokens = 1200
	p.Conference.System = defaultConferenceSystem
	p.Conference.UserTemplate = defaultConferenceUserTemplate
	return &p
}

// LoadPrompts loads prompt configuration from a YAML file. Fields missing from the
// file keep their built-in values.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	prompts := DefaultPrompts()
	if err := yaml.Unmarshal(data, prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	if _, err := template.New("prompt").Parse(prompts.Conference.UserTemplate); err != nil {
		return nil, fmt.Errorf("invalid conference user_template: %w", err)
	}

	return prompts, nil
}

// renderTemplate renders a template with provided data
func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
