package tokens

import (
	"sync"

	"github.com/go-go-golems/agentchat/pkg/agent"
	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"
)

// EncodingForModel picks the BPE encoding used to estimate prompt size. The
// agent's backends do not expose their tokenizers, so this is an estimate.
func EncodingForModel(m agent.Model) tokenizer.Encoding {
	switch m {
	case agent.ModelOpenAI:
		return tokenizer.O200kBase
	case agent.ModelOllama:
		return tokenizer.Cl100kBase
	default:
		return tokenizer.Cl100kBase
	}
}

// Counter counts tokens, loading each codec the first time it is needed.
type Counter struct {
	mu     sync.Mutex
	codecs map[tokenizer.Encoding]tokenizer.Codec
}

func NewCounter() *Counter {
	return &Counter{codecs: map[tokenizer.Encoding]tokenizer.Codec{}}
}

func (c *Counter) codec(enc tokenizer.Encoding) (tokenizer.Codec, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if codec, ok := c.codecs[enc]; ok {
		return codec, nil
	}
	codec, err := tokenizer.Get(enc)
	if err != nil {
		return nil, errors.Wrapf(err, "load codec %s", enc)
	}
	c.codecs[enc] = codec
	return codec, nil
}

// Count returns the number of tokens text encodes to for model.
func (c *Counter) Count(text string, model agent.Model) (int, error) {
	if text == "" {
		return 0, nil
	}
	codec, err := c.codec(EncodingForModel(model))
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, errors.Wrap(err, "error encoding input")
	}
	return len(ids), nil
}
