package codegen

// The header/source templates themselves are target-language assets, not
// part of the generator's contract (see the non-goals on code emission
// for languages other than the chosen C-family target): only the set of
// substitution names a template may use is specified. These are the
// generator's own default templates for that single target.

const headerPrefixTemplate = `// Code generated by lexforge. DO NOT EDIT.
#ifndef $(prefix)_LEXER_H
#define $(prefix)_LEXER_H

#include <cstdint>
#include <cstddef>

$(header)
`

const headerTemplate = `
namespace $(prefix) {

enum class Token : uint16_t {
    $(enum_tokens)
};

enum class State : uint16_t {
    $(enum_states)
};

struct Lexer {
    const char *cursor;
    const char *limit;
    State state;
    $(extra_fields)

    void set_state(State s);
    bool next(Token *out_token, const char **out_begin, const char **out_end);
};

} // namespace $(prefix)

#endif
`

const sourcePrefixTemplate = `// Code generated by lexforge. DO NOT EDIT.
#include "$(prefix)_lexer.h"

namespace $(prefix) {

#define TOKEN(name) (static_cast<uint16_t>(Token::name))

$(source)
`

const sourceTemplate = `
namespace {

constexpr size_t kNumStates = sizeof(kTransitions) / sizeof(kTransitions[0]) / 256;

const uint32_t kEqClasses[256] = {
    $(eq_classes)
};

const uint32_t kTransitions[] = {
    $(transitions)
};

const uint32_t kEofTransitions[] = {
    $(eof_transitions)
};

} // namespace

void Lexer::set_state(State s) {
    switch (s) {
    $(set_state_switch)
    default:
        $(lexer_trap)
        break;
    }
}

bool Lexer::next(Token *out_token, const char **out_begin, const char **out_end) {
    const char *begin = cursor;
    uint32_t offset = static_cast<uint32_t>(state);
    const char *last_accept_end = nullptr;
    uint32_t last_accept_word = 0;

    while (cursor < limit) {
        uint32_t cls = kEqClasses[static_cast<unsigned char>(*cursor)];
        uint32_t word = kTransitions[cls + offset];
        if ((word & 0xffffu) == 0 && (word & 0x80000000u) == 0) {
            break;
        }
        cursor++;
        offset = word & 0xffffu;
        if (word & 0x80000000u) {
            last_accept_end = cursor;
            last_accept_word = word;
        }
    }

    if (cursor == limit) {
        uint32_t eof_word = kEofTransitions[offset / 4];
        if (eof_word & 0x80000000u) {
            last_accept_end = cursor;
            last_accept_word = eof_word;
        }
    }

    if (last_accept_end == nullptr) {
        return false;
    }
    cursor = last_accept_end;
    *out_token = static_cast<Token>(last_accept_word >> 16);
    *out_begin = begin;
    *out_end = last_accept_end;
    return true;
}

} // namespace $(prefix)
`
